/*
Package persist defines the persistence contract between a synchronized
store and its durable backend.

Implementations:
  - jsonfile: bulk/atomic strategy over a JSON-lines file; every save
    fully rewrites the file.
  - pebbledb: transactional delta strategy over an embedded pebble
    database; saves apply only the computed insert/delete sets inside
    one atomic batch.
  - ddb: transactional delta strategy over AWS DynamoDB using
    TransactWriteItems.
  - mock: configurable in-memory implementation for testing.
*/
package persist
