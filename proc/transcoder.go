package proc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
)

const (
	sampleRate    = 48000
	frameSamples  = 960 // 20ms at 48kHz
	opusBitRate   = 128000
	probeSize     = "5000000"
	ioBufferBytes = 16 * 1024
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes any audio container read from r and re-encodes it as
// 20ms stereo Opus frames.
type Transcoder struct {
	input       *astiav.FormatContext
	ioCtx       *astiav.IOContext
	decoder     *astiav.CodecContext
	encoder     *astiav.CodecContext
	resampler   *astiav.SoftwareResampleContext
	fifo        *astiav.AudioFifo
	packet      *astiav.Packet
	frame       *astiav.Frame
	resampled   *astiav.Frame
	streamIndex int
	pts         int64
	opened      bool
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		packet:      astiav.AllocPacket(),
		frame:       astiav.AllocFrame(),
		resampled:   astiav.AllocFrame(),
		streamIndex: -1,
	}
}

// Open probes r and prepares the decoder, encoder and resampler. It blocks
// until enough input has been read to identify the stream.
func (t *Transcoder) Open(r io.Reader) error {
	t.input = astiav.AllocFormatContext()
	if t.input == nil {
		return errors.New("alloc format context")
	}

	ioCtx, err := astiav.AllocIOContext(ioBufferBytes, false, r.Read, nil, nil)
	if err != nil {
		return fmt.Errorf("alloc io context: %w", err)
	}
	t.ioCtx = ioCtx
	t.input.SetPb(ioCtx)
	t.input.SetFlags(t.input.Flags().Add(astiav.FormatContextFlagCustomIo))

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("probesize", probeSize, 0)
	_ = opts.Set("analyzeduration", probeSize, 0)

	if err := t.input.OpenInput("", nil, opts); err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	t.opened = true
	if err := t.input.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("find stream info: %w", err)
	}
	for _, s := range t.input.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.streamIndex = s.Index()
			break
		}
	}
	if t.streamIndex < 0 {
		return errors.New("no audio stream")
	}

	if err := t.openDecoder(); err != nil {
		return err
	}
	return t.openEncoder()
}

func (t *Transcoder) openDecoder() error {
	params := t.input.Streams()[t.streamIndex].CodecParameters()
	d := astiav.FindDecoder(params.CodecID())
	if d == nil {
		return fmt.Errorf("no decoder for %s", params.CodecID())
	}
	t.decoder = astiav.AllocCodecContext(d)
	if err := params.ToCodecContext(t.decoder); err != nil {
		return fmt.Errorf("decoder parameters: %w", err)
	}
	if err := t.decoder.Open(d, nil); err != nil {
		return fmt.Errorf("open decoder: %w", err)
	}
	return nil
}

func (t *Transcoder) openEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("no opus encoder")
	}

	t.encoder = astiav.AllocCodecContext(e)
	t.encoder.SetBitRate(opusBitRate)
	t.encoder.SetSampleRate(sampleRate)
	t.encoder.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoder.SetSampleFormat(astiav.SampleFormatS16)
	t.encoder.SetTimeBase(astiav.NewRational(1, sampleRate))

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("vbr", "on", 0)
	_ = opts.Set("frame_size", "20", 0)
	if err := t.encoder.Open(e, opts); err != nil {
		return fmt.Errorf("open encoder: %w", err)
	}

	t.resampler = astiav.AllocSoftwareResampleContext()
	if t.resampler == nil {
		return errors.New("alloc resampler")
	}
	t.fifo = astiav.AllocAudioFifo(t.encoder.SampleFormat(), t.encoder.ChannelLayout().Channels(), frameSamples*2)
	if t.fifo == nil {
		return errors.New("alloc fifo")
	}
	return nil
}

// Run transcodes until the input ends or ctx is done, handing each Opus
// frame to emit. A clean end of input returns nil.
func (t *Transcoder) Run(ctx context.Context, emit func([]byte)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcoder panic: %v", r)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		t.packet.Unref()
		if err := t.input.ReadFrame(t.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if t.packet.StreamIndex() != t.streamIndex {
			continue
		}
		if err := t.decoder.SendPacket(t.packet); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := t.drainDecoder(emit); err != nil {
			return err
		}
	}

	// Flush whatever is buffered in the decoder, the fifo and the encoder.
	_ = t.decoder.SendPacket(nil)
	if err := t.drainDecoder(emit); err != nil {
		return err
	}
	if err := t.encodeFifo(true, emit); err != nil {
		return err
	}
	_ = t.encoder.SendFrame(nil)
	t.drainEncoder(emit)
	return nil
}

func (t *Transcoder) drainDecoder(emit func([]byte)) error {
	for t.decoder.ReceiveFrame(t.frame) == nil {
		err := t.resample()
		t.frame.Unref()
		if err != nil {
			return err
		}
		if err := t.encodeFifo(false, emit); err != nil {
			return err
		}
	}
	return nil
}

// resample converts the decoded frame to the encoder's format and queues it.
func (t *Transcoder) resample() error {
	n := astiav.RescaleQ(int64(t.frame.NbSamples()), astiav.NewRational(1, t.frame.SampleRate()), astiav.NewRational(1, sampleRate))
	if n <= 0 {
		return nil
	}
	t.prepareFrame(int(n))
	if err := t.resampler.ConvertFrame(t.frame, t.resampled); err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	if _, err := t.fifo.Write(t.resampled); err != nil {
		return fmt.Errorf("fifo write: %w", err)
	}
	return nil
}

func (t *Transcoder) prepareFrame(samples int) {
	t.resampled.Unref()
	t.resampled.SetChannelLayout(t.encoder.ChannelLayout())
	t.resampled.SetSampleFormat(t.encoder.SampleFormat())
	t.resampled.SetSampleRate(sampleRate)
	t.resampled.SetNbSamples(samples)
	_ = t.resampled.AllocBuffer(0)
}

// encodeFifo encodes every full 20ms frame in the fifo. With flush set the
// short remainder is encoded too.
func (t *Transcoder) encodeFifo(flush bool, emit func([]byte)) error {
	for {
		n := frameSamples
		if t.fifo.Size() < n {
			if !flush || t.fifo.Size() == 0 {
				return nil
			}
			n = t.fifo.Size()
		}
		t.prepareFrame(n)
		if _, err := t.fifo.Read(t.resampled); err != nil {
			return fmt.Errorf("fifo read: %w", err)
		}
		t.resampled.SetPts(t.pts)
		t.pts += int64(n)

		if err := t.encoder.SendFrame(t.resampled); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		t.drainEncoder(emit)
	}
}

func (t *Transcoder) drainEncoder(emit func([]byte)) {
	for {
		t.packet.Unref()
		if t.encoder.ReceivePacket(t.packet) != nil {
			return
		}
		data := t.packet.Data()
		out := make([]byte, len(data))
		copy(out, data)
		emit(out)
	}
}

// Close frees everything Open allocated. It is safe after a failed Open.
func (t *Transcoder) Close() {
	if t.fifo != nil {
		t.fifo.Free()
	}
	if t.resampler != nil {
		t.resampler.Free()
	}
	if t.encoder != nil {
		t.encoder.Free()
	}
	if t.decoder != nil {
		t.decoder.Free()
	}
	if t.input != nil {
		if t.opened {
			t.input.CloseInput()
		}
		t.input.Free()
	}
	if t.ioCtx != nil {
		t.ioCtx.Free()
	}
	t.resampled.Free()
	t.frame.Free()
	t.packet.Free()
}
