// Package explain renders plans for people and for machines.
//
// Tree prints an indented outline of a plan for logs and the CLI. Document
// and JSON produce a structured form that the planfile package reads back,
// and Fingerprint hashes that form so identical plans can be recognised
// across processes.
package explain
