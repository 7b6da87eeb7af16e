// Package decoder parses inbound message bodies into typed payloads.
package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/hedeqiang/tonwatch/event"
)

// Well-known op codes.
const (
	OpComment            uint32 = 0
	OpJettonNotification uint32 = 0x7362d09c
)

var (
	// ErrDecode is returned when a body cannot be parsed.
	ErrDecode = errors.New("decoder: decode failed")

	// ErrDuplicate is returned when registering an op code twice.
	ErrDuplicate = errors.New("decoder: op already registered")
)

// Kind classifies a payload.
type Kind int

const (
	KindEmpty Kind = iota
	KindComment
	KindJettonNotification
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindComment:
		return "comment"
	case KindJettonNotification:
		return "jetton_notification"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// JettonNotification is the transfer_notification a jetton wallet sends to
// the owner of the receiving wallet.
type JettonNotification struct {
	QueryID uint64
	// Amount is in the jetton's base units.
	Amount *big.Int
	// Sender is the owner of the sending jetton wallet.
	Sender *address.Address
	// Comment is the text comment carried in the forward payload, if any.
	Comment string
}

// Payload is a decoded message body.
type Payload struct {
	Kind    Kind
	Op      uint32
	Comment string
	Jetton  *JettonNotification

	// Custom holds the result of a decoder registered with Register.
	Custom any
}

// String returns a human-readable representation of the payload.
func (p *Payload) String() string {
	switch p.Kind {
	case KindComment:
		return fmt.Sprintf("comment(%q)", p.Comment)
	case KindJettonNotification:
		return fmt.Sprintf("jetton(amount=%s sender=%s comment=%q)", p.Jetton.Amount, p.Jetton.Sender, p.Jetton.Comment)
	case KindEmpty:
		return "empty"
	default:
		return fmt.Sprintf("op(0x%08x)", p.Op)
	}
}

// MarshalJSON implements json.Marshaler. Amounts are decimal strings and
// addresses use the user-friendly form.
func (p *Payload) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"kind": p.Kind,
		"op":   p.Op,
	}
	if p.Kind == KindComment {
		m["comment"] = p.Comment
	}
	if j := p.Jetton; j != nil {
		m["jetton"] = map[string]any{
			"query_id": j.QueryID,
			"amount":   j.Amount.String(),
			"sender":   j.Sender.String(),
			"comment":  j.Comment,
		}
	}
	if p.Custom != nil {
		m["custom"] = p.Custom
	}
	return json.Marshal(m)
}

// OpDecoder parses the body that follows a registered op code into p.
type OpDecoder func(body *cell.Slice, p *Payload) error

// Decoder dispatches bodies by op code.
type Decoder struct {
	mu  sync.RWMutex
	ops map[uint32]OpDecoder
}

// New returns a decoder that understands text comments and jetton
// transfer notifications.
func New() *Decoder {
	return &Decoder{ops: map[uint32]OpDecoder{
		OpComment:            decodeComment,
		OpJettonNotification: decodeJettonNotification,
	}}
}

// Register adds a decoder for op. The built-in ops cannot be replaced.
func (d *Decoder) Register(op uint32, fn OpDecoder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.ops[op]; ok {
		return fmt.Errorf("%w: 0x%08x", ErrDuplicate, op)
	}
	d.ops[op] = fn
	return nil
}

// Decode parses the body of msg. A message without a body decodes to
// KindEmpty; an op with no registered decoder to KindUnknown. Bodies that
// do not match the layout of their op return ErrDecode.
func (d *Decoder) Decode(msg *event.Message) (*Payload, error) {
	if msg == nil || msg.Body == nil {
		return &Payload{Kind: KindEmpty}, nil
	}
	s := msg.Body.BeginParse()
	if s.BitsLeft() == 0 && s.RefsNum() == 0 {
		return &Payload{Kind: KindEmpty}, nil
	}

	op, err := s.LoadUInt(32)
	if err != nil {
		return nil, fmt.Errorf("%w: op: %v", ErrDecode, err)
	}
	p := &Payload{Kind: KindUnknown, Op: uint32(op)}

	d.mu.RLock()
	fn, ok := d.ops[p.Op]
	d.mu.RUnlock()
	if !ok {
		return p, nil
	}
	if err := fn(s, p); err != nil {
		return nil, fmt.Errorf("%w: op 0x%08x: %v", ErrDecode, p.Op, err)
	}
	return p, nil
}

var defaultDecoder = New()

// Decode parses msg with the built-in decoders.
func Decode(msg *event.Message) (*Payload, error) {
	return defaultDecoder.Decode(msg)
}

func decodeComment(s *cell.Slice, p *Payload) error {
	text, err := s.LoadStringSnake()
	if err != nil {
		return err
	}
	p.Kind = KindComment
	p.Comment = text
	return nil
}

// decodeJettonNotification parses
// transfer_notification#7362d09c query_id:uint64 amount:(VarUInteger 16)
// sender:MsgAddress forward_payload:(Either Cell ^Cell)
func decodeJettonNotification(s *cell.Slice, p *Payload) error {
	queryID, err := s.LoadUInt(64)
	if err != nil {
		return fmt.Errorf("query id: %w", err)
	}
	amount, err := s.LoadBigCoins()
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	sender, err := s.LoadAddr()
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	j := &JettonNotification{QueryID: queryID, Amount: amount, Sender: sender}
	j.Comment = forwardComment(s)

	p.Kind = KindJettonNotification
	p.Jetton = j
	return nil
}

// forwardComment extracts a text comment from the forward payload. A
// missing or non-comment payload yields "".
func forwardComment(s *cell.Slice) string {
	if s.BitsLeft() == 0 {
		return ""
	}
	inRef, err := s.LoadBoolBit()
	if err != nil {
		return ""
	}
	payload := s
	if inRef {
		if payload, err = s.LoadRef(); err != nil {
			return ""
		}
	}
	if payload.BitsLeft() < 32 {
		return ""
	}
	op, err := payload.LoadUInt(32)
	if err != nil || uint32(op) != OpComment {
		return ""
	}
	text, err := payload.LoadStringSnake()
	if err != nil {
		return ""
	}
	return text
}
