// Package audio provides microphone capture for the speech engine.
//
// This package manages:
//   - PCM16 capture from the default input device via PortAudio
//   - A paced silence source for development machines without a microphone
//   - Buffered-audio draining during engine recovery
//
// # Architecture
//
// The engine pulls audio through the Source interface. ReadChunk is
// deliberately short-blocking (it waits at most a few milliseconds for
// frames) so callers can interleave abort checks between chunks - a
// recogniser stuck on a dead microphone must still answer an abort.
//
// # Usage
//
//	src, err := audio.New(audio.Config{
//	    SampleRate:      16000,
//	    FramesPerBuffer: 1024,
//	    Channels:        1,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	if err := src.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	chunk, err := src.ReadChunk()
package audio
