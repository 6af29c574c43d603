// Package bstruct encodes Go structs and fixed-offset records into
// raw bytes.
package bstruct

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Byter is implemented by field types that encode themselves.
type Byter interface {
	ToBytes(binary.ByteOrder) []byte
}

// FieldInfo describes a field after it has been encoded.
type FieldInfo struct {
	Index int
	Name  string
	Type  string
	Value []byte
}

func StructToBytesOrExit(s interface{}, bo binary.ByteOrder, optFn func(FieldInfo) error) []byte {
	b, err := StructToBytes(s, bo, optFn)
	if err != nil {
		DefaultExitFn(err)
	}

	return b
}

// StructToBytes encodes the fields of struct s in declaration order
// without padding. Supported field types are fixed-size integers,
// byte arrays and Byter implementations.
//
// If optFn is non-nil, it is called after each field is encoded.
func StructToBytes(s interface{}, bo binary.ByteOrder, optFn func(FieldInfo) error) ([]byte, error) {
	if s == nil {
		return nil, errors.New("struct is nil")
	}

	structValue := reflect.ValueOf(s)
	if structValue.Kind() == reflect.Pointer {
		structValue = structValue.Elem()
	}

	if structValue.Kind() != reflect.Struct {
		return nil, errors.Errorf("expected a struct - got %T", s)
	}

	numFields := structValue.NumField()

	structType := structValue.Type()

	var b []byte

	for i := 0; i < numFields; i++ {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if !field.IsExported() {
			return nil, errors.Errorf("field %q (index %d) is not exported",
				field.Name, i)
		}

		at := len(b)

		switch t := fieldValue.Interface().(type) {
		case Byter:
			b = append(b, t.ToBytes(bo)...)
		case uint8:
			b = append(b, t)
		case int8:
			b = append(b, uint8(t))
		case uint16:
			b = appendUint16(b, bo, t)
		case int16:
			b = appendUint16(b, bo, uint16(t))
		case uint32:
			b = appendUint32(b, bo, t)
		case int32:
			b = appendUint32(b, bo, uint32(t))
		case uint64:
			b = appendUint64(b, bo, t)
		case int64:
			b = appendUint64(b, bo, uint64(t))
		default:
			if fieldValue.Kind() == reflect.Array && fieldValue.Type().Elem().Kind() == reflect.Uint8 {
				for j := 0; j < fieldValue.Len(); j++ {
					b = append(b, uint8(fieldValue.Index(j).Uint()))
				}

				break
			}

			return nil, fmt.Errorf("unsupported data type %T for field %q (index %d)",
				t, field.Name, i)
		}

		if optFn != nil {
			err := optFn(FieldInfo{
				Index: i,
				Name:  field.Name,
				Type:  field.Type.String(),
				Value: b[at:],
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

func appendUint16(b []byte, bo binary.ByteOrder, v uint16) []byte {
	b = append(b, make([]byte, 2)...)
	bo.PutUint16(b[len(b)-2:], v)
	return b
}

func appendUint32(b []byte, bo binary.ByteOrder, v uint32) []byte {
	b = append(b, make([]byte, 4)...)
	bo.PutUint32(b[len(b)-4:], v)
	return b
}

func appendUint64(b []byte, bo binary.ByteOrder, v uint64) []byte {
	b = append(b, make([]byte, 8)...)
	bo.PutUint64(b[len(b)-8:], v)
	return b
}
