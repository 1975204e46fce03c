// Package blob abstracts the binary inputs of a conversion: the site archive
// and the launcher icon. A File may come from a browser upload, a path on
// disk, or memory; validators and the encoder only see the interface.
package blob
