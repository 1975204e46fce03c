// Package encoder turns binary inputs into text-safe data URIs for JSON
// transport and decodes them back. Encoding runs as a lazy Task so both
// inputs of a conversion can be read concurrently.
package encoder
