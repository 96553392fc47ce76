package opennebula

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type methodCall struct {
	Method string `xml:"methodName"`
	Params []struct {
		Value struct {
			Inner string `xml:",innerxml"`
		} `xml:"value"`
	} `xml:"params>param"`
}

// onedStub answers XML-RPC calls with a canned [success, result, code] array.
type onedStub struct {
	success bool
	result  string
	code    int
	calls   []methodCall
}

func (s *onedStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var call methodCall
	_ = xml.Unmarshal(body, &call)
	s.calls = append(s.calls, call)

	flag := 0
	if s.success {
		flag = 1
	}
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<?xml version="1.0"?><methodResponse><params><param><value><array><data>`+
		`<value><boolean>%d</boolean></value><value><string>%s</string></value><value><i4>%d</i4></value>`+
		`</data></array></value></param></params></methodResponse>`, flag, html.EscapeString(s.result), s.code)
}

func newStubClient(t *testing.T, stub http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/RPC2", 5*time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientCall_Success(t *testing.T) {
	stub := &onedStub{success: true, result: "<VM><ID>5</ID><NAME>web</NAME></VM>"}
	c := newStubClient(t, stub)

	result, err := c.Call(context.Background(), "vm.info", Session("oneadmin", "secret"), 5, false)
	require.NoError(t, err)
	assert.Equal(t, "<VM><ID>5</ID><NAME>web</NAME></VM>", result)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "one.vm.info", stub.calls[0].Method)
	require.Len(t, stub.calls[0].Params, 3)
	assert.Contains(t, stub.calls[0].Params[0].Value.Inner, "oneadmin:secret")
	assert.Contains(t, stub.calls[0].Params[1].Value.Inner, "5")
	assert.Contains(t, stub.calls[0].Params[2].Value.Inner, "boolean")
}

func TestClientCall_KeepsPrefixedMethod(t *testing.T) {
	stub := &onedStub{success: true, result: "6.8.0"}
	c := newStubClient(t, stub)

	_, err := c.Call(context.Background(), "one.system.version", "a:b")
	require.NoError(t, err)
	assert.Equal(t, "one.system.version", stub.calls[0].Method)
}

func TestClientCall_OnedError(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status int
	}{
		{"authentication", CodeAuthentication, http.StatusUnauthorized},
		{"authorization", CodeAuthorization, http.StatusForbidden},
		{"no exists", CodeNoExists, http.StatusNotFound},
		{"action", CodeAction, http.StatusBadRequest},
		{"api", CodeXMLRPCAPI, http.StatusBadRequest},
		{"allocate", CodeAllocate, http.StatusBadRequest},
		{"locked", CodeLocked, http.StatusLocked},
		{"internal", CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &onedStub{result: "[one.vm.info] Error getting virtual machine [5].", code: tt.code}
			c := newStubClient(t, stub)

			_, err := c.Call(context.Background(), "vm.info", "a:b", 5)
			require.Error(t, err)

			var oneErr *Error
			require.True(t, errors.As(err, &oneErr))
			assert.Equal(t, tt.code, oneErr.Code)
			assert.Equal(t, "one.vm.info", oneErr.Method)
			assert.Contains(t, oneErr.Message, "Error getting virtual machine")
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestClientCall_TransportError(t *testing.T) {
	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newStubClient(t, stub)

	_, err := c.Call(context.Background(), "vm.info", "a:b", 1)
	require.Error(t, err)

	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestClientCall_ContextCanceled(t *testing.T) {
	aborted := make(chan struct{})
	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(aborted)
	})
	c := newStubClient(t, stub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, "vm.info", "a:b", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))

	// The request to oned is torn down with the caller, not left running
	// until the transport timeout.
	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("oned request still in flight after the context was cancelled")
	}
}

func TestClientCall_Fault(t *testing.T) {
	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, `<?xml version="1.0"?><methodResponse><fault><value><struct>`+
			`<member><name>faultCode</name><value><int>-1</int></value></member>`+
			`<member><name>faultString</name><value><string>no such method</string></value></member>`+
			`</struct></value></fault></methodResponse>`)
	})
	c := newStubClient(t, stub)

	_, err := c.Call(context.Background(), "vm.fly", "a:b")
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Contains(t, err.Error(), "no such method")
}

func TestUnwrap(t *testing.T) {
	_, err := unwrap("one.vm.info", []any{true})
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = unwrap("one.vm.info", []any{"yes", "x"})
	assert.ErrorIs(t, err, ErrMalformedResponse)

	result, err := unwrap("one.vm.allocate", []any{true, int64(42), int64(0)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)

	_, err = unwrap("one.vm.info", []any{false, "failed"})
	var oneErr *Error
	require.True(t, errors.As(err, &oneErr))
	assert.Equal(t, CodeInternal, oneErr.Code)
}

func TestStatusOf_UnrelatedError(t *testing.T) {
	assert.Equal(t, 0, StatusOf(errors.New("other")))
	assert.Equal(t, 0, StatusOf(nil))
}

func TestPool(t *testing.T) {
	p := NewPool(time.Second, nil)
	defer p.Close()

	a, err := p.Get("http://a:2633/RPC2")
	require.NoError(t, err)
	again, err := p.Get("http://a:2633/RPC2")
	require.NoError(t, err)
	b, err := p.Get("http://b:2633/RPC2")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, "http://b:2633/RPC2", b.Endpoint())

	_, err = p.Get("")
	assert.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	decoded, err := DecodeResult(`<VM_POOL><VM><ID>1</ID><NAME>a</NAME></VM><VM><ID>2</ID><NAME>b</NAME></VM></VM_POOL>`)
	require.NoError(t, err)

	m, ok := decoded.(map[string]any)
	require.True(t, ok)
	pool, ok := m["VM_POOL"].(map[string]any)
	require.True(t, ok)
	vms, ok := pool["VM"].([]any)
	require.True(t, ok)
	require.Len(t, vms, 2)
	assert.Equal(t, "b", vms[1].(map[string]any)["NAME"])

	decoded, err = DecodeResult(int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), decoded)

	decoded, err = DecodeResult("6.8.0")
	require.NoError(t, err)
	assert.Equal(t, "6.8.0", decoded)

	_, err = DecodeResult("<VM><ID>1</VM>")
	assert.Error(t, err)
}

func TestLooksLikeXML(t *testing.T) {
	assert.True(t, LooksLikeXML("  <VM/>"))
	assert.False(t, LooksLikeXML("6.8.0"))
	assert.False(t, LooksLikeXML(""))
}
