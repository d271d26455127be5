// Package batch runs a tool operation over several ids (issue node ids,
// message URLs) and reports per-item outcomes, so one failure does not hide
// the others.
package batch
