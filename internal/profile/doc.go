// Package profile holds the catalog of listening profiles.
//
// A profile bundles an input selector with target volume, subwoofer level
// and a volume ceiling. The catalog is built once at startup, validated, and
// never changes afterwards; lookups are exact and case-sensitive on both the
// profile name and the selector string. A selector may be a comma-joined
// group such as "video2,cbl,sat", which is matched as one opaque key.
//
// A selector that belongs to no profile resolves to the Unknown profile
// rather than an error:
//
//	p := catalog.LookupBySelector("fm")
//	if p.IsUnknown() {
//	    // the receiver is on an input with no profile
//	}
package profile
