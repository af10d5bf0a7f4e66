// Package thread reconstructs reply threads from a timestamp-ordered
// sequence of messages. Each message becomes a node in a forest: replies hang
// off the message they answer, everything else is a root, and every sibling
// chain keeps the order messages were presented in.
package thread
