// Package store presents Redis collections as typed, joinable tables and persists
// hash-backed records with optimistic concurrency control.
//
// # Overview
//
// Independent services share mutable state in Redis hashes, lists, sets, sorted sets
// and streams. This package describes that state with catalog definitions and turns it
// into tabular views:
//
//   - ContentType declares how one stored value becomes a row (its converter).
//   - StructureType is the collection shape and knows how to size and read it.
//   - Structure binds a key, possibly templated with positional tokens, to a shape
//     and a content type, plus an ordered list of Joins.
//   - Join correlates another structure's view into the current table by key
//     templating (key_on), left-outer merge (on), or vertical union, then sorts and
//     slices the result.
//
// Definitions live in two catalog hashes (micra_content_types, micra_structures)
// as canonical JSON and are decoded fresh on every lookup.
//
// # Records
//
// A Record is a short-lived copy of a hash: load it, mutate it, save it.
// Client.SaveRecord watches the key, compares the expected field values and
// replaces the hash in one MULTI/EXEC. A mismatch or a concurrent write returns
// false; the caller decides whether to retry.
//
// # Usage Example
//
//	client, err := store.NewClient(&redis.Options{Addr: "localhost:6379"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	table, err := client.View(ctx, "jobs_scored")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, row := range table.Rows() {
//		fmt.Println(row["key"], row["ordered_set_score"], row["job_identifier"])
//	}
//
// # Consistency
//
// Each structure instantiation is read in its own round trip. A view spanning
// several joins is not a snapshot: writers may change state between steps.
package store
