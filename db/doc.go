/*

Package db is the record store underneath the custody workflow: a
content-addressable, append-only database of write-once objects, plus
a ledger that indexes record versions and commits transitions
atomically.

Vocabulary:

- abspath: absolute path on hard disk, including subdirs
- relpath: path relative to db.Dir, including subdirs
- canpath: canonical path; relpath without subdirs
- hash: cryptographic hash of a block or tree, header included
- algo: name (string) describing hash algorithm
- subdir: three-character hexadecimal segment of hash
- subdirs: one or more subdir segments inserted in abspath or relpath
	in order to keep directory sizes small; the number of subdirs is fixed
	at database creation
- block: write-once file holding one msgpack-encoded record or commit
- tree: list of one or more blocks or trees; stored as file containing
  block or tree canpaths
- journal: the stream of commits; a chain of trees where each new root
  holds the previous root and the newest commit block
- stream: a symlink under stream/ pointing at a rootnode canpath; the
  journal is the stream labeled "journal"
- label: human-readable name of a record; stored as a symlink under
  label/ pointing at the record's block
- address: algo/hash; the identity of a record version is the address
  of the block holding it
- party: opaque name of a participant; visibility is decided per party
- version: one immutable record plus its ledger state (active,
  superseded by, archived at)

A transition is submitted as a function over a Tx.  Nothing touches
the journal until the function returns without error; then every new
record block, the commit block and the new journal root are written,
and the journal symlink is swapped with renameio.  The swap is the
commit point.

*/

package db
