package kaiku

type (
	// VoiceID is an opaque handle to one scheduled or playing sound emission.
	// It is owned exclusively by the scheduler that created it and becomes
	// invalid when the voice ends, naturally or by force.
	VoiceID int64

	// VoiceSpec describes one emission of a clip (or a slice of it) to a
	// Device. All times are in seconds. DeviceTime is an absolute device-clock
	// target, not a delay: voices scheduled in any order play correctly
	// because each carries its own target instant.
	VoiceSpec struct {
		Track      int     // track the voice belongs to
		Clip       *Clip   // buffer to play; not retained after the voice ends
		DeviceTime float64 // absolute device-clock start time
		Offset     float64 // in-buffer read offset
		Duration   float64 // planned duration; 0 plays to the end of the buffer
		Gain       float64 // linear gain, 1 = unity
		FadeIn     float64 // linear fade-in length, 0 = none
		FadeOut    float64 // linear fade-out length, 0 = none
	}

	// Device is the audio output and hardware clock collaborator. Now must be
	// monotonic. Start schedules a voice and may fail with
	// ErrSchedulingRejected; End force-ends a voice and is idempotent, ending
	// an already-ended voice is a no-op. The device reports natural voice ends
	// asynchronously (through the engine broker in this module); the core does
	// not depend on the notification but uses it to keep its active-voice
	// bookkeeping from growing without bound.
	Device interface {
		Now() float64
		Start(spec VoiceSpec) (VoiceID, error)
		End(id VoiceID)
		PlayThrough(src SampleReader) (stop func())
		Close() error
	}

	// SampleReader yields mono float32 samples. It is the monitoring face of a
	// capture stream: reads drain whatever has been captured since the last
	// read and never block.
	SampleReader interface {
		ReadSamples(buf []float32) (n int, err error)
	}

	// CaptureStream is a live capture in progress. Finalize stops the capture
	// and returns the accumulated audio as one encoded blob; no partial data
	// is ever handed to the core.
	CaptureStream interface {
		SampleReader
		Finalize() ([]byte, error)
	}

	// Capturer is the microphone capture collaborator. Begin acquires an input
	// stream or fails with an error wrapping ErrCaptureUnavailable. Begin may
	// take unbounded time and is always called off the engine timeline.
	Capturer interface {
		Begin() (CaptureStream, error)
	}

	// Decoder is the compressed-audio decode collaborator: given a captured
	// blob, it returns per-channel samples and the sample rate, or fails with
	// an error wrapping ErrDecodeFailed.
	Decoder interface {
		Decode(data []byte) (samples [][]float32, sampleRate int, err error)
	}
)
