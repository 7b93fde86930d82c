package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	xmlHeader   = `<?xml version="1.0"?>`
	iso8601Form = "20060102T15:04:05"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// EncodeResponse renders value as a successful methodResponse.
func EncodeResponse(value any) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString("<methodResponse><params><param>")
	if err := writeValue(&b, reflect.ValueOf(value), 0); err != nil {
		return nil, err
	}
	b.WriteString("</param></params></methodResponse>")
	return b.Bytes(), nil
}

// EncodeFault renders err as a fault methodResponse. See [AsFault] for how
// non-fault errors are mapped.
func EncodeFault(err error) ([]byte, error) {
	f := AsFault(err)
	if f == nil {
		f = &Fault{Code: FaultInternal, String: "nil fault"}
	}

	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString("<methodResponse><fault><value><struct>")
	b.WriteString("<member><name>faultCode</name><value><int>")
	b.WriteString(strconv.Itoa(f.Code))
	b.WriteString("</int></value></member>")
	b.WriteString("<member><name>faultString</name><value><string>")
	if err := xml.EscapeText(&b, []byte(f.String)); err != nil {
		return nil, err
	}
	b.WriteString("</string></value></member>")
	b.WriteString("</struct></value></fault></methodResponse>")
	return b.Bytes(), nil
}

// EncodeCall renders a methodCall. The router never sends calls; this is
// used by clients and tests.
func EncodeCall(method string, params ...any) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&b, []byte(method)); err != nil {
		return nil, err
	}
	b.WriteString("</methodName><params>")
	for _, p := range params {
		b.WriteString("<param>")
		if err := writeValue(&b, reflect.ValueOf(p), 0); err != nil {
			return nil, err
		}
		b.WriteString("</param>")
	}
	b.WriteString("</params></methodCall>")
	return b.Bytes(), nil
}

const maxEncodeDepth = 64

func writeValue(b *bytes.Buffer, v reflect.Value, depth int) error {
	if depth > maxEncodeDepth {
		return fmt.Errorf("xmlrpc: value nested deeper than %d", maxEncodeDepth)
	}

	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			break
		}
		v = v.Elem()
	}

	b.WriteString("<value>")
	defer b.WriteString("</value>")

	if !v.IsValid() || ((v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer ||
		v.Kind() == reflect.Map) && v.IsNil()) {
		b.WriteString("<nil/>")
		return nil
	}

	switch v.Type() {
	case timeType:
		b.WriteString("<dateTime.iso8601>")
		b.WriteString(v.Interface().(time.Time).Format(iso8601Form))
		b.WriteString("</dateTime.iso8601>")
		return nil
	case bytesType:
		b.WriteString("<base64>")
		b.WriteString(base64.StdEncoding.EncodeToString(v.Bytes()))
		b.WriteString("</base64>")
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			b.WriteString("<boolean>1</boolean>")
		} else {
			b.WriteString("<boolean>0</boolean>")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeInt(b, v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return fmt.Errorf("xmlrpc: unsigned value %d overflows i8", u)
		}
		writeInt(b, int64(u))
	case reflect.Float32, reflect.Float64:
		b.WriteString("<double>")
		b.WriteString(strconv.FormatFloat(v.Float(), 'f', -1, 64))
		b.WriteString("</double>")
	case reflect.String:
		b.WriteString("<string>")
		if err := xml.EscapeText(b, []byte(v.String())); err != nil {
			return err
		}
		b.WriteString("</string>")
	case reflect.Slice, reflect.Array:
		b.WriteString("<array><data>")
		for i := 0; i < v.Len(); i++ {
			if err := writeValue(b, v.Index(i), depth+1); err != nil {
				return err
			}
		}
		b.WriteString("</data></array>")
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("xmlrpc: unsupported map key type %s", v.Type().Key())
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		b.WriteString("<struct>")
		for _, k := range keys {
			if err := writeMember(b, k, v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())), depth); err != nil {
				return err
			}
		}
		b.WriteString("</struct>")
	case reflect.Struct:
		b.WriteString("<struct>")
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, omitEmpty, skip := fieldName(field)
			if skip {
				continue
			}
			fv := v.Field(i)
			if omitEmpty && fv.IsZero() {
				continue
			}
			if err := writeMember(b, name, fv, depth); err != nil {
				return err
			}
		}
		b.WriteString("</struct>")
	default:
		return fmt.Errorf("xmlrpc: unsupported type %s", v.Type())
	}
	return nil
}

func writeInt(b *bytes.Buffer, n int64) {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		b.WriteString("<int>")
		b.WriteString(strconv.FormatInt(n, 10))
		b.WriteString("</int>")
		return
	}
	b.WriteString("<i8>")
	b.WriteString(strconv.FormatInt(n, 10))
	b.WriteString("</i8>")
}

func writeMember(b *bytes.Buffer, name string, v reflect.Value, depth int) error {
	b.WriteString("<member><name>")
	if err := xml.EscapeText(b, []byte(name)); err != nil {
		return err
	}
	b.WriteString("</name>")
	if err := writeValue(b, v, depth+1); err != nil {
		return err
	}
	b.WriteString("</member>")
	return nil
}

func fieldName(f reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag, ok := f.Tag.Lookup("xmlrpc")
	if !ok {
		return f.Name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, opts == "omitempty", false
}
