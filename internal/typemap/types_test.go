package typemap

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemagen/pkg/types"
)

// goName renders t the way generated code spells it. Only the unnamed
// []uint8 is spelled []byte; named byte slices keep their own name.
func goName(t reflect.Type) string {
	if t.Name() == "" && t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return "[]byte"
	}
	return t.String()
}

func importOf(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath()
}

// The type names and import paths written into generated code must name
// real types.
func TestResolve_MatchesRuntimeTypes(t *testing.T) {
	samples := map[Kind][2]any{
		KindBool:      {false, (*bool)(nil)},
		KindInt8:      {int8(0), (*int8)(nil)},
		KindInt16:     {int16(0), (*int16)(nil)},
		KindInt32:     {int32(0), (*int32)(nil)},
		KindInt64:     {int64(0), (*int64)(nil)},
		KindUint8:     {uint8(0), (*uint8)(nil)},
		KindUint16:    {uint16(0), (*uint16)(nil)},
		KindUint32:    {uint32(0), (*uint32)(nil)},
		KindUint64:    {uint64(0), (*uint64)(nil)},
		KindFloat32:   {float32(0), (*float32)(nil)},
		KindFloat64:   {float64(0), (*float64)(nil)},
		KindDecimal:   {decimal.Decimal{}, decimal.NullDecimal{}},
		KindString:    {"", (*string)(nil)},
		KindBytes:     {[]byte(nil), []byte(nil)},
		KindJSON:      {json.RawMessage(nil), (*json.RawMessage)(nil)},
		KindUUID:      {uuid.UUID{}, uuid.NullUUID{}},
		KindDate:      {types.LocalDate{}, (*types.LocalDate)(nil)},
		KindTime:      {types.LocalTime{}, (*types.LocalTime)(nil)},
		KindDateTime:  {types.LocalDateTime{}, (*types.LocalDateTime)(nil)},
		KindTimestamp: {time.Time{}, (*time.Time)(nil)},
	}
	require.Len(t, samples, len(Kinds()))

	for k, pair := range samples {
		for i, nullable := range []bool{false, true} {
			gt, err := Resolve(k, nullable)
			require.NoError(t, err)

			rt := reflect.TypeOf(pair[i])
			assert.Equal(t, goName(rt), gt.Name, "%s nullable=%v", k, nullable)
			assert.Equal(t, importOf(rt), gt.Import, "%s nullable=%v", k, nullable)
		}
	}
}

func TestGoName(t *testing.T) {
	assert.Equal(t, "[]byte", goName(reflect.TypeOf([]byte(nil))))
	assert.Equal(t, "json.RawMessage", goName(reflect.TypeOf(json.RawMessage(nil))))
	assert.Equal(t, "*json.RawMessage", goName(reflect.TypeOf((*json.RawMessage)(nil))))
}

func TestResolve_UnknownKind(t *testing.T) {
	_, err := Resolve("geometry", false)
	assert.Error(t, err)
}
