/*
Package store persists trained markov.Model values in a SQLite database so
corpora only need to be processed once. Models share a global vocabulary and
prefix table; chain links are keyed by model, prefix, and next token, with
frequencies that add on retraining. The package also provides JSON export and
import for moving models between databases, pruning, and model statistics.
*/
package store
