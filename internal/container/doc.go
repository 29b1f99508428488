// Package container serializes acquisition outcomes into the fixed binary
// container layouts consumed by downstream animation assembly.
//
// All three schemas share the same unversioned header: a single record-count
// byte followed by a 19-byte ASCII timestamp. There is no magic number and no
// discriminator between schemas; consumers must know the producing schema
// out-of-band. That contract is preserved deliberately for compatibility with
// existing consumers.
package container
