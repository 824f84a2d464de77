// Package swiftregistry is a client for the Swift Package Registry HTTP
// protocol: discovery, metadata retrieval, manifest fetching, source
// archive download, identity lookup, login and publish, mediated through a
// layered trust pipeline of signature verification, signing-entity change
// tracking, and Trust-On-First-Use checksum pinning.
//
// A Client is built with New and a Registry description; every
// out-of-scope collaborator (HTTP transport, archiver, JSON codec,
// manifest parser, cryptographic engine, credential store, consent
// delegate, storage backends) has a working default and can be replaced
// with a functional Option.
package swiftregistry
