// Package storage persists the bot's two collections: jobs (ordered, oldest
// first) and subscribers (a set of chat ids).
//
// Drivers only offer whole-collection load/replace. State layers a
// per-collection single-writer lock on top so load-mutate-save sequences from
// concurrent updates cannot overwrite each other.
package storage
