package lineproto

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginStream = `{"status": "loading", "message": "Connecting to Telegram Servers...", "error": false}
{"status": "need_phone", "message": "Enter Phone Number (e.g., +91...)", "error": false}
{"status": "loading", "message": "Sending OTP...", "error": false}
{"status": "need_otp", "message": "OTP sent to +911234567890", "error": false}
{"status": "success", "message": "Welcome, Ada!", "error": false}
`

func tags(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Tag+"|"+ev.Message)
	}
	return out
}

func feedChunks(chunks []string) []domain.Event {
	d := NewDecoder(nil)
	var events []domain.Event
	for _, c := range chunks {
		events = append(events, d.Feed([]byte(c))...)
	}
	return append(events, d.Flush()...)
}

func TestDecoderChunkingInvariance(t *testing.T) {
	want := tags(feedChunks([]string{loginStream}))
	require.Len(t, want, 5)

	for size := 1; size <= len(loginStream); size++ {
		var chunks []string
		for i := 0; i < len(loginStream); i += size {
			end := min(i+size, len(loginStream))
			chunks = append(chunks, loginStream[i:end])
		}
		assert.Equal(t, want, tags(feedChunks(chunks)), "chunk size %d", size)
	}
}

func TestDecoderSplitAtEveryBoundary(t *testing.T) {
	want := tags(feedChunks([]string{loginStream}))

	for cut := 0; cut <= len(loginStream); cut++ {
		got := tags(feedChunks([]string{loginStream[:cut], loginStream[cut:]}))
		assert.Equal(t, want, got, "cut at %d", cut)
	}
}

func TestDecoderDropsMalformedLines(t *testing.T) {
	var dropped []string
	d := NewDecoder(func(line []byte, err error) {
		assert.True(t, errors.Is(err, domain.ErrMalformedEventLine))
		dropped = append(dropped, string(line))
	})

	events := d.Feed([]byte("not json\n{\"status\":\"need_phone\"}\n"))
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNeedPhone, events[0].Kind)
	assert.Equal(t, []string{"not json"}, dropped)
}

func TestDecoderSkipsBlankLinesWithoutParsing(t *testing.T) {
	called := false
	d := NewDecoder(func([]byte, error) { called = true })

	events := d.Feed([]byte("\n   \n\t\r\n"))
	assert.Empty(t, events)
	assert.False(t, called)
}

func TestDecoderKeepsPartialLineUntilNewline(t *testing.T) {
	d := NewDecoder(nil)

	assert.Empty(t, d.Feed([]byte(`{"type":"progress",`)))
	assert.Equal(t, len(`{"type":"progress",`), d.Pending())

	events := d.Feed([]byte("\"progress\":42}\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "42%", events[0].PercentLabel())
	assert.Zero(t, d.Pending())
}

func TestDecoderFlushDecodesUnterminatedTail(t *testing.T) {
	d := NewDecoder(nil)
	assert.Empty(t, d.Feed([]byte(`{"status":"success","message":"done"}`)))

	events := d.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSuccess, events[0].Kind)
	assert.Empty(t, d.Flush())
}

func TestDecoderRejectsNonObjectJSON(t *testing.T) {
	var dropped int
	d := NewDecoder(func([]byte, error) { dropped++ })

	events := d.Feed([]byte("42\n\"text\"\n[1,2]\n{\"status\":\"success\"}\n"))
	require.Len(t, events, 1)
	assert.Equal(t, 3, dropped)
}

func TestDecoderKeepsRawLine(t *testing.T) {
	d := NewDecoder(nil)
	events := d.Feed([]byte("  {\"type\":\"info\",\"message\":\"Processing: Intro\",\"progress\":0}  \n"))
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"type":"info","message":"Processing: Intro","progress":0}`, string(events[0].Raw))
}

type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestDecodeSequenceOverReader(t *testing.T) {
	input := "garbage\n" + loginStream + `{"status":"need_phone"}`

	var got []domain.EventKind
	for ev := range Decode(oneByteReader{strings.NewReader(input)}, nil) {
		got = append(got, ev.Kind)
	}

	assert.Equal(t, []domain.EventKind{
		domain.EventLoading,
		domain.EventNeedPhone,
		domain.EventLoading,
		domain.EventNeedCode,
		domain.EventSuccess,
		domain.EventNeedPhone,
	}, got)
}

func TestDecodeStopsWhenConsumerBreaks(t *testing.T) {
	count := 0
	for range Decode(strings.NewReader(loginStream), nil) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestSchemaDescribesWireRecord(t *testing.T) {
	s := Schema()
	require.NotNil(t, s.Properties)

	for _, name := range []string{"status", "type", "message", "error", "progress"} {
		_, ok := s.Properties.Get(name)
		assert.True(t, ok, "missing property %s", name)
	}
}
