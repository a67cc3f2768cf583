// Package langid provides advisory language identification for
// transcribed text.
//
// Detection never blocks delivery: a confident mismatch between the
// detected and the configured language flags the transcript, nothing
// more. The bundled Heuristic detector scores stop words across the
// five languages Hark recognises out of the box; anything smarter can
// be dropped in behind the Detector interface.
package langid
