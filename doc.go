// Package icp implements the instrument control protocol's server side:
// the wire codec, the catalogue of variables/groups/curves/functions, and
// the dispatch table that validates and executes each request against it.
//
// The transport that delivers request bytes and carries response bytes
// back is external to this package; ProcessPacket is the single entry
// point a transport binder calls per exchange.
package icp
