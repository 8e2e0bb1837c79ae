/*
Package diff computes insert/delete sets between two snapshots of a
collection.

Compute works over any identity.Comparer; ComputeIdentified adds the
delta-backend rules for identified entities, where transient items are
always inserts and persisted items are matched by id alone. Both run in
O(n+m) using comparer-keyed hash sets.
*/
package diff
