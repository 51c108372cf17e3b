// Package echo provides a deterministic offline backend for demos and tests.
package echo
