package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/domain"
)

func allParsers() []ResponseParser {
	return []ResponseParser{ScanParser{}, StructuredParser{}}
}

func TestParse_Canonical(t *testing.T) {
	body := []byte(`{"code":0,"message":"OK","data":{"a":"1","b":"2"}}`)
	for _, p := range allParsers() {
		t.Run(p.Name(), func(t *testing.T) {
			resp, err := p.Parse(body)
			require.NoError(t, err)
			assert.Equal(t, 0, resp.Code)
			assert.Equal(t, "OK", resp.Message)
			assert.Equal(t, map[string]string{"a": "1", "b": "2"}, resp.Data)
			assert.True(t, resp.OK())
		})
	}
}

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
		data    map[string]string
	}{
		{
			name:    "field order independent",
			body:    `{"data":{"stawidth":"8"},"message":"OK","code":200}`,
			code:    200,
			message: "OK",
			data:    map[string]string{"stawidth": "8"},
		},
		{
			name:    "whitespace",
			body:    "{\n  \"code\": 1,\n  \"message\": \"no stats\",\n  \"data\": { \"x\" : \"y\" }\n}",
			code:    1,
			message: "no stats",
			data:    map[string]string{"x": "y"},
		},
		{
			name:    "empty data",
			body:    `{"code":0,"message":"OK","data":{}}`,
			code:    0,
			message: "OK",
			data:    map[string]string{},
		},
		{
			name:    "comma inside value",
			body:    `{"code":0,"message":"OK","data":{"k":"a,b","n":"3"}}`,
			code:    0,
			message: "OK",
			data:    map[string]string{"k": "a,b", "n": "3"},
		},
	}
	for _, tt := range tests {
		for _, p := range allParsers() {
			t.Run(tt.name+"/"+p.Name(), func(t *testing.T) {
				resp, err := p.Parse([]byte(tt.body))
				require.NoError(t, err)
				assert.Equal(t, tt.code, resp.Code)
				assert.Equal(t, tt.message, resp.Message)
				assert.Equal(t, tt.data, resp.Data)
			})
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing code", `{"message":"OK","data":{}}`},
		{"missing message", `{"code":0,"data":{}}`},
		{"missing data", `{"code":0,"message":"OK"}`},
		{"nested object", `{"code":0,"message":"OK","data":{"a":{"b":"c"}}}`},
		{"nested array", `{"code":0,"message":"OK","data":{"a":["b"]}}`},
		{"data not object", `{"code":0,"message":"OK","data":"x"}`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		for _, p := range allParsers() {
			t.Run(tt.name+"/"+p.Name(), func(t *testing.T) {
				_, err := p.Parse([]byte(tt.body))
				require.Error(t, err)
				var perr *domain.ErrProtocol
				assert.ErrorAs(t, err, &perr)
				assert.True(t, domain.IsRecoverable(err))
			})
		}
	}
}

func TestStructuredParser_ScalarValues(t *testing.T) {
	body := []byte(`{"code":"0","message":"OK","data":{"n":12.5,"b":true,"z":null,"s":"a\"b"}}`)
	resp, err := StructuredParser{}.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, map[string]string{"n": "12.5", "b": "true", "z": "", "s": `a"b`}, resp.Data)
}

func TestResponse_Float(t *testing.T) {
	resp := &Response{Message: "OK", Data: map[string]string{"v": "0.25", "bad": "x"}}
	f, err := resp.Float("v")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, f, 1e-9)

	_, err = resp.Float("bad")
	assert.Error(t, err)
	_, err = resp.Float("missing")
	assert.Error(t, err)

	var nilResp *Response
	assert.False(t, nilResp.OK())
}

func TestNewParser(t *testing.T) {
	p, err := NewParser("")
	require.NoError(t, err)
	assert.Equal(t, ParserStructured, p.Name())

	p, err = NewParser(ParserScan)
	require.NoError(t, err)
	assert.Equal(t, ParserScan, p.Name())

	_, err = NewParser("regex")
	assert.Error(t, err)
}
