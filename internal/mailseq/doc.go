// Package mailseq keeps messages in a singly-linked chain sorted by
// timestamp. Insertion is position-correct, so the chain is always ordered,
// and a single cursor supports one forward scan at a time.
package mailseq
