// Package checkpoint persists the progress of a fetch run so an interrupted
// run can resume where it stopped.
//
// A State records the records collected so far plus the last unit (page or
// row) known to be complete. Stores are interchangeable: FileStore writes an
// indented JSON file atomically, RedisStore keeps the same document under a
// single key, and NopStore is used when checkpointing is turned off.
//
// Loading never fails on bad data. A missing or corrupt checkpoint loads as
// nil and the run starts over.
package checkpoint
