package message

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/randx"
)

const (
	// DefaultMaxLength caps the length of a text message.
	DefaultMaxLength = 2048

	// DefaultRollTop is the upper bound of "-roll" without an argument.
	DefaultRollTop = 100

	maxRollDigits = 5
	clampedRoll   = 99999
)

// RPSOutcomes are the possible values of a "-rps" command.
var RPSOutcomes = []string{"rock", "scissors", "paper"}

var (
	rollPattern = regexp.MustCompile(`^-roll( ([0-9]*))?$`)
	rpsPattern  = regexp.MustCompile(`^-rps$`)
)

// GroupResolver looks a group up by its unique name.
type GroupResolver interface {
	ResolveGroupName(ctx context.Context, name string) (groupID string, found bool, err error)
}

// Input is a client's send request after the destination has been checked.
type Input struct {
	Type    Type
	Content string

	// Inviter is the sender's username, embedded into invite messages.
	Inviter string
}

// Processor classifies and rewrites outgoing message bodies.
type Processor struct {
	maxLength int
	groups    GroupResolver
	policy    *bluemonday.Policy
	intn      func(n int) int
}

// NewProcessor creates a processor. A non-positive maxLength selects DefaultMaxLength.
func NewProcessor(groups GroupResolver, maxLength int) *Processor {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Processor{
		maxLength: maxLength,
		groups:    groups,
		policy:    bluemonday.StrictPolicy(),
		intn:      randx.Intn,
	}
}

// WithRand replaces the random source, returning p for chaining. intn must return a value in [0, n).
func (p *Processor) WithRand(intn func(n int) int) *Processor {
	p.intn = intn
	return p
}

// MaxLength is the longest text, in characters, the processor accepts.
func (p *Processor) MaxLength() int {
	return p.maxLength
}

// Process turns a send request into the body that is stored and fanned out.
// Failures are returned as *errs.CustomError.
func (p *Processor) Process(ctx context.Context, in Input) (Body, error) {
	switch in.Type {
	case TypeText:
		return p.processText(in.Content)

	case TypeImage, TypeCode:
		return Body{Type: in.Type, Text: in.Content}, nil

	case TypeInvite:
		return p.processInvite(ctx, in)
	}

	// system messages are produced by the server only
	return Body{}, errs.NewError(errs.ErrInvalidMessageType)
}

func (p *Processor) processText(content string) (Body, error) {
	if len([]rune(content)) > p.maxLength {
		return Body{}, errs.NewError(errs.ErrMessageTooLong)
	}

	trimmed := strings.TrimSpace(content)

	if match := rollPattern.FindStringSubmatch(trimmed); match != nil {
		top := parseRollTop(match[2])
		return Body{
			Type: TypeSystem,
			Roll: &RollResult{Command: CommandRoll, Value: p.intn(top + 1), Top: top},
		}, nil
	}

	if rpsPattern.MatchString(trimmed) {
		return Body{
			Type: TypeSystem,
			RPS:  &RPSResult{Command: CommandRPS, Value: RPSOutcomes[p.intn(len(RPSOutcomes))]},
		}, nil
	}

	return Body{Type: TypeText, Text: p.policy.Sanitize(content)}, nil
}

// parseRollTop reads the "-roll" argument. A missing or empty argument means
// DefaultRollTop; anything longer than five digits is clamped.
func parseRollTop(digits string) int {
	if digits == "" {
		return DefaultRollTop
	}
	if len(digits) > maxRollDigits {
		return clampedRoll
	}

	top, err := strconv.Atoi(digits)
	if err != nil {
		return DefaultRollTop
	}
	return top
}

func (p *Processor) processInvite(ctx context.Context, in Input) (Body, error) {
	groupName := strings.TrimSpace(in.Content)
	if groupName == "" {
		return Body{}, errs.NewError(errs.ErrInviteGroupNotFound)
	}

	groupID, found, err := p.groups.ResolveGroupName(ctx, groupName)
	if err != nil {
		return Body{}, err
	}
	if !found {
		return Body{}, errs.NewError(errs.ErrInviteGroupNotFound)
	}

	return Body{
		Type: TypeInvite,
		Invite: &InviteContent{
			Inviter:   in.Inviter,
			GroupID:   groupID,
			GroupName: groupName,
		},
	}, nil
}
