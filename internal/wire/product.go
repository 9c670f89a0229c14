// Package wire encodes product events for the broker.
//
// The format is the protobuf wire format of the message
//
//	message Product {
//	  int64 id = 1;
//	  string name = 2;
//	  int64 price = 3;
//	  string description = 4;
//	  string category = 5;
//	  OperationType operation = 6;
//	}
//
// so payloads stay readable by any protobuf consumer of the same schema. Unlike
// a generated marshaller, every field is always written, in field-number order,
// which keeps the output deterministic and lets Decode insist on id and
// operation being present. Strings must be valid UTF-8, as in proto3: Encode
// replaces invalid sequences with U+FFFD and Decode rejects them. Unknown
// fields are skipped.
package wire

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bilawal506/online-mart/internal/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

type Operation int32

const (
	OperationCreate Operation = 0
	OperationUpdate Operation = 1
	OperationDelete Operation = 2
)

func (op Operation) String() string {
	switch op {
	case OperationCreate:
		return "CREATE"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Operation(%d)", int32(op))
	}
}

const (
	fieldID          protowire.Number = 1
	fieldName        protowire.Number = 2
	fieldPrice       protowire.Number = 3
	fieldDescription protowire.Number = 4
	fieldCategory    protowire.Number = 5
	fieldOperation   protowire.Number = 6
)

var ErrMalformedMessage = errors.New("malformed product message")

func Encode(p domain.Product, op Operation) []byte {
	p.Name = validUTF8(p.Name)
	p.Description = validUTF8(p.Description)
	p.Category = validUTF8(p.Category)

	b := make([]byte, 0, 40+len(p.Name)+len(p.Description)+len(p.Category))

	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.ID))
	b = protowire.AppendTag(b, fieldName, protowire.BytesType)
	b = protowire.AppendString(b, p.Name)
	b = protowire.AppendTag(b, fieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Price))
	b = protowire.AppendTag(b, fieldDescription, protowire.BytesType)
	b = protowire.AppendString(b, p.Description)
	b = protowire.AppendTag(b, fieldCategory, protowire.BytesType)
	b = protowire.AppendString(b, p.Category)
	b = protowire.AppendTag(b, fieldOperation, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(op)))

	return b
}

func Decode(b []byte) (p domain.Product, op Operation, err error) {
	var hasID, hasOperation bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, op, malformed("tag", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldID, fieldPrice, fieldOperation:
			if typ != protowire.VarintType {
				return p, op, fmt.Errorf("%w: field %d has wire type %d, want varint", ErrMalformedMessage, num, typ)
			}

			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, op, malformed(fmt.Sprintf("field %d", num), protowire.ParseError(n))
			}
			b = b[n:]

			switch num {
			case fieldID:
				p.ID = int64(v)
				hasID = true
			case fieldPrice:
				p.Price = int64(v)
			case fieldOperation:
				if v > uint64(OperationDelete) {
					return p, op, fmt.Errorf("%w: unknown operation %d", ErrMalformedMessage, int64(v))
				}
				op = Operation(v)
				hasOperation = true
			}
		case fieldName, fieldDescription, fieldCategory:
			if typ != protowire.BytesType {
				return p, op, fmt.Errorf("%w: field %d has wire type %d, want bytes", ErrMalformedMessage, num, typ)
			}

			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return p, op, malformed(fmt.Sprintf("field %d", num), protowire.ParseError(n))
			}
			if !utf8.ValidString(v) {
				return p, op, fmt.Errorf("%w: field %d is not valid UTF-8", ErrMalformedMessage, num)
			}
			b = b[n:]

			switch num {
			case fieldName:
				p.Name = v
			case fieldDescription:
				p.Description = v
			case fieldCategory:
				p.Category = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, op, malformed(fmt.Sprintf("unknown field %d", num), protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !hasID {
		return p, op, fmt.Errorf("%w: missing id", ErrMalformedMessage)
	}
	if !hasOperation {
		return p, op, fmt.Errorf("%w: missing operation", ErrMalformedMessage)
	}

	return p, op, nil
}

func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, what, err)
}
