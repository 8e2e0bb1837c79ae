/*
Package storagemodels provides ready-made entity models used by the
syncstore examples and integration tests.

The types double as reference implementations of the two entity
contracts:

	identity.Identified  — mutable numeric id, zero while transient
	syncstore.Observable — field-level change broadcasting via an
	                       embedded syncstore.ChangeBroadcaster

Use them as templates for application entity types; the library itself
does not depend on this package.
*/
package storagemodels
