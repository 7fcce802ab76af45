// Package extract holds the contact heuristics applied to visible page text.
//
// An Extractor finds email addresses in a text segment, locates the
// contextual container around the segment (a list item, table row, or a
// div whose class names an item or card), and looks inside that
// container's text for a phone number and a personal name near the email.
//
// Names are found by an ordered list of NameStrategy implementations.
// The first strategy that yields a candidate within the distance bound
// wins; within a strategy the candidate closest to the email wins and
// ties go to the candidate that appears first.
//
// All offsets are measured in runes of the container's rendered text.
package extract
