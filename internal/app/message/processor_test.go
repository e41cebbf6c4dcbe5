package message

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"linkchat/internal/pkg/errs"
)

type fakeGroups map[string]string

func (f fakeGroups) ResolveGroupName(_ context.Context, name string) (string, bool, error) {
	if name == "broken" {
		return "", false, errors.New("database down")
	}
	id, ok := f[name]
	return id, ok, nil
}

func newTestProcessor(intn func(int) int) *Processor {
	return NewProcessor(fakeGroups{"gophers": "group-1"}, 0).WithRand(intn)
}

func process(t *testing.T, p *Processor, typ Type, content string) Body {
	t.Helper()
	body, err := p.Process(context.Background(), Input{Type: typ, Content: content, Inviter: "alice"})
	require.NoError(t, err)
	return body
}

func TestRollWithArgument(t *testing.T) {
	var bound int
	p := newTestProcessor(func(n int) int { bound = n; return n - 1 })

	body := process(t, p, TypeText, "-roll 10")

	assert.Equal(t, TypeSystem, body.Type)
	require.NotNil(t, body.Roll)
	assert.Equal(t, RollResult{Command: CommandRoll, Value: 10, Top: 10}, *body.Roll)
	assert.Equal(t, 11, bound, "value is drawn from [0, top]")
}

func TestRollDefaults(t *testing.T) {
	p := newTestProcessor(func(int) int { return 0 })

	for _, content := range []string{"-roll", "-roll ", "  -roll  "} {
		body := process(t, p, TypeText, content)
		require.NotNil(t, body.Roll, content)
		assert.Equal(t, DefaultRollTop, body.Roll.Top, content)
	}
}

func TestRollClampsLongArgument(t *testing.T) {
	p := newTestProcessor(func(int) int { return 0 })

	body := process(t, p, TypeText, "-roll 12345678901234567890")
	require.NotNil(t, body.Roll)
	assert.Equal(t, 99999, body.Roll.Top)

	body = process(t, p, TypeText, "-roll 12345")
	assert.Equal(t, 12345, body.Roll.Top)
}

func TestRollValueStaysInRange(t *testing.T) {
	p := NewProcessor(fakeGroups{}, 0)

	rapid.Check(t, func(t *rapid.T) {
		top := rapid.IntRange(0, 99999).Draw(t, "top")
		body, err := p.Process(context.Background(), Input{Type: TypeText, Content: "-roll " + strconv.Itoa(top)})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if body.Roll == nil || body.Roll.Top != top {
			t.Fatalf("unexpected roll %+v", body.Roll)
		}
		if body.Roll.Value < 0 || body.Roll.Value > top {
			t.Fatalf("value %d outside [0, %d]", body.Roll.Value, top)
		}
	})
}

func TestRPSValueIsAnOutcome(t *testing.T) {
	p := NewProcessor(fakeGroups{}, 0)

	for i := 0; i < 50; i++ {
		body := process(t, p, TypeText, "-rps")
		assert.Equal(t, TypeSystem, body.Type)
		require.NotNil(t, body.RPS)
		assert.Equal(t, CommandRPS, body.RPS.Command)
		assert.Contains(t, RPSOutcomes, body.RPS.Value)
	}
}

func TestTextIsSanitized(t *testing.T) {
	p := newTestProcessor(nil)

	body := process(t, p, TypeText, "hello")
	assert.Equal(t, Body{Type: TypeText, Text: "hello"}, body)

	body = process(t, p, TypeText, `hi <script>alert(1)</script><b>there</b>`)
	assert.Equal(t, TypeText, body.Type)
	assert.NotContains(t, body.Text, "<script>")
	assert.NotContains(t, body.Text, "<b>")
	assert.Contains(t, body.Text, "there")

	// near misses of a command stay text
	body = process(t, p, TypeText, "-roll abc")
	assert.Equal(t, TypeText, body.Type)
	body = process(t, p, TypeText, "-rps now")
	assert.Equal(t, TypeText, body.Type)
}

func TestTextLengthCap(t *testing.T) {
	p := NewProcessor(fakeGroups{}, 10)

	_, err := p.Process(context.Background(), Input{Type: TypeText, Content: strings.Repeat("a", 11)})
	assert.True(t, errs.HasCode(err, errs.ErrMessageTooLong))

	_, err = p.Process(context.Background(), Input{Type: TypeText, Content: strings.Repeat("a", 10)})
	assert.NoError(t, err)
}

func TestImageAndCodePassThrough(t *testing.T) {
	p := newTestProcessor(nil)

	body := process(t, p, TypeCode, "<div>raw</div>")
	assert.Equal(t, Body{Type: TypeCode, Text: "<div>raw</div>"}, body)
}

func TestInviteResolvesGroup(t *testing.T) {
	p := newTestProcessor(nil)

	body := process(t, p, TypeInvite, "gophers")
	assert.Equal(t, TypeInvite, body.Type)
	assert.Equal(t, &InviteContent{Inviter: "alice", GroupID: "group-1", GroupName: "gophers"}, body.Invite)

	_, err := p.Process(context.Background(), Input{Type: TypeInvite, Content: "nobody"})
	assert.True(t, errs.HasCode(err, errs.ErrInviteGroupNotFound))

	_, err = p.Process(context.Background(), Input{Type: TypeInvite, Content: "broken"})
	assert.Error(t, err)
	_, isCustom := errs.As(err)
	assert.False(t, isCustom)
}

func TestClientCannotSendSystemOrUnknownTypes(t *testing.T) {
	p := newTestProcessor(nil)

	for _, typ := range []Type{TypeSystem, "video", ""} {
		_, err := p.Process(context.Background(), Input{Type: typ, Content: "x"})
		assert.True(t, errs.HasCode(err, errs.ErrInvalidMessageType), string(typ))
	}
}
