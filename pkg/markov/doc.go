/*
Package markov implements an order-N Markov chain over tokenized text: n-gram
frequency counting, start (beta) and end (omega) boundary distributions, and a
seeded weighted random walk that synthesizes new token sequences.

The package is pure and self-contained. Models are built once from a token
sequence and are read-only afterwards, so any number of concurrent generation
runs may share one Model. Persistence lives in the store package, and all file
and terminal I/O lives in cmd/mimicry.
*/
package markov
