// doc.go - package overview for audiograph

/*
Package audiograph implements the Web Audio API's rendering model as a
native Go library: a pull-scheduled render graph of audio nodes, sample-
accurate parameter automation, channel up/down-mixing, HRTF spatialization
and a partitioned FFT reverb convolver.

A host drives the engine by calling Residual.Render once per device
callback, which pulls whole render quanta from the Context as needed and
interleaves them into the host's buffer; everything else (graph edits,
parameter automation, scheduling) happens on ordinary goroutines and is
synchronized onto quantum boundaries by Context's graph/render lock pair.
*/
package audiograph
