package command

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/kolo/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandNaming(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		action   string
		path     string
	}{
		{"vm.info", "vm", "info", "/vm/info"},
		{"vmpool.info", "vmpool", "info", "/vmpool/info"},
		{"vm.disksaveas", "vm", "disksaveas", "/vm/disksaveas"},
		{"groupquota.update", "groupquota", "update", "/groupquota/update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Command{Name: tt.name, Method: http.MethodGet}
			assert.Equal(t, tt.resource, c.Resource())
			assert.Equal(t, tt.action, c.Action())
			assert.Equal(t, tt.path, c.Path())
			assert.Equal(t, "one."+tt.name, c.RPCMethod())
		})
	}
}

func TestRequestConfig(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name    string
		command string
		data    map[string]any
		method  string
		url     string
		params  map[string]any
		body    map[string]any
	}{
		{
			name:    "resource in path and query flag",
			command: "vm.info",
			data:    map[string]any{"id": 5, "decrypt": true},
			method:  http.MethodGet,
			url:     "/vm/info/5",
			params:  map[string]any{"decrypt": true},
		},
		{
			name:    "missing resource keeps base url",
			command: "user.info",
			data:    map[string]any{},
			method:  http.MethodGet,
			url:     "/user/info",
		},
		{
			name:    "post body for mutating command",
			command: "vm.action",
			data:    map[string]any{"id": 12, "action": "poweroff"},
			method:  http.MethodPut,
			url:     "/vm/action/12",
			body:    map[string]any{"action": "poweroff"},
		},
		{
			name:    "several resource params keep declaration order",
			command: "vm.disksnapshotdelete",
			data:    map[string]any{"snapshot": 3, "disk": 1, "id": 7},
			method:  http.MethodDelete,
			url:     "/vm/disksnapshotdelete/7/1/3",
		},
		{
			name:    "unknown keys are dropped",
			command: "vmpool.info",
			data:    map[string]any{"filter": -1, "bogus": "x"},
			method:  http.MethodGet,
			url:     "/vmpool/info",
			params:  map[string]any{"filter": -1},
		},
		{
			name:    "nil values are skipped",
			command: "vm.rename",
			data:    map[string]any{"id": 1, "name": nil},
			method:  http.MethodPut,
			url:     "/vm/rename/1",
		},
		{
			name:    "post body param on delete travels in query",
			command: "template.delete",
			data:    map[string]any{"id": 4, "image": true},
			method:  http.MethodDelete,
			url:     "/template/delete/4",
			params:  map[string]any{"image": true},
		},
		{
			name:    "path segments are escaped",
			command: "vm.info",
			data:    map[string]any{"id": "a/b"},
			method:  http.MethodGet,
			url:     "/vm/info/a%2Fb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := catalog.Lookup(tt.command)
			require.NoError(t, err)

			cfg := c.RequestConfig(tt.data)
			assert.Equal(t, tt.method, cfg.Method)
			assert.Equal(t, tt.url, cfg.URL)
			assert.Equal(t, tt.params, cfg.Params)
			assert.Equal(t, tt.body, cfg.Body)
		})
	}
}

func TestRequestConfigTarget(t *testing.T) {
	c, err := DefaultCatalog().Lookup("vmpool.info")
	require.NoError(t, err)

	cfg := c.RequestConfig(map[string]any{"filter": -1, "start": 0})
	target := cfg.Target("http://localhost:2616/")

	u, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "/api/vmpool/info", u.Path)
	assert.Equal(t, "-1", u.Query().Get("filter"))
	assert.Equal(t, "0", u.Query().Get("start"))
}

func TestResolve(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name    string
		command string
		path    []string
		query   url.Values
		body    map[string]any
		want    []any
		wantErr error
	}{
		{
			name:    "defaults fill missing values",
			command: "vmpool.info",
			want:    []any{-2, -1, -1, -1, ""},
		},
		{
			name:    "query values are coerced",
			command: "vmpool.info",
			query:   url.Values{"filter": {"-3"}, "state": {"3"}},
			want:    []any{-3, -1, -1, 3, ""},
		},
		{
			name:    "resource and query",
			command: "vm.info",
			path:    []string{"42"},
			query:   url.Values{"decrypt": {"true"}},
			want:    []any{42, true},
		},
		{
			name:    "body precedes resource when declared first",
			command: "vm.action",
			path:    []string{"3"},
			body:    map[string]any{"action": "resume"},
			want:    []any{"resume", 3},
		},
		{
			name:    "json numbers become integers",
			command: "vm.chown",
			path:    []string{"1"},
			body:    map[string]any{"user": float64(2)},
			want:    []any{1, 2, -1},
		},
		{
			name:    "missing required body param",
			command: "vm.rename",
			path:    []string{"1"},
			wantErr: ErrMissingParam,
		},
		{
			name:    "missing required resource",
			command: "vm.info",
			wantErr: ErrMissingParam,
		},
		{
			name:    "invalid integer",
			command: "vm.info",
			path:    []string{"abc"},
			wantErr: ErrInvalidParam,
		},
		{
			name:    "fractional number is not an integer",
			command: "vm.chown",
			path:    []string{"1"},
			body:    map[string]any{"user": 1.5},
			wantErr: ErrInvalidParam,
		},
		{
			name:    "too many path segments",
			command: "vm.info",
			path:    []string{"1", "2"},
			wantErr: ErrInvalidParam,
		},
		{
			name:    "resource default",
			command: "user.info",
			want:    []any{-1, false},
		},
		{
			name:    "delete reads body params from query",
			command: "template.delete",
			path:    []string{"4"},
			query:   url.Values{"image": {"1"}},
			want:    []any{4, true},
		},
		{
			name:    "object template rendered",
			command: "vm.update",
			path:    []string{"9"},
			body:    map[string]any{"template": map[string]any{"DESCRIPTION": "web"}, "replace": float64(1)},
			want:    []any{9, `DESCRIPTION="web"`, 1},
		},
		{
			name:    "array from comma separated string",
			command: "user.allocate",
			body:    map[string]any{"username": "ana", "password": "pw", "group": "1,2"},
			want:    []any{"ana", "pw", "", []any{1, 2}},
		},
		{
			name:    "array items are coerced to the item type",
			command: "user.allocate",
			body:    map[string]any{"username": "ana", "password": "pw", "group": []any{json.Number("1"), "2", float64(3)}},
			want:    []any{"ana", "pw", "", []any{1, 2, 3}},
		},
		{
			name:    "array item of the wrong type",
			command: "user.allocate",
			body:    map[string]any{"username": "ana", "password": "pw", "group": []any{"admins"}},
			wantErr: ErrInvalidParam,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := catalog.Lookup(tt.command)
			require.NoError(t, err)

			got, err := c.Resolve(tt.path, tt.query, tt.body)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Bodies are decoded with UseNumber, so array elements arrive as json.Number
// and must still reach oned as <int> values.
func TestResolveArrayEncodesIntegers(t *testing.T) {
	c, err := DefaultCatalog().Lookup("user.allocate")
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(`{"username":"ana","password":"pw","group":[1,2]}`))
	dec.UseNumber()
	var body map[string]any
	require.NoError(t, dec.Decode(&body))

	args, err := c.Resolve(nil, nil, body)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, args[3])

	call, err := xmlrpc.EncodeMethodCall(c.RPCMethod(), append([]any{"session"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, string(call), "<int>1</int>")
	assert.Contains(t, string(call), "<int>2</int>")
	assert.NotContains(t, string(call), "<string>1</string>")
}

// Every command built by RequestConfig must resolve back to the same arguments
// on the gateway side.
func TestRequestConfigResolvesBack(t *testing.T) {
	sample := map[ParamType]any{
		TypeInteger: 7,
		TypeBoolean: true,
		TypeString:  "x",
		TypeXML:     `A="1"`,
		TypeArray:   []any{"a"},
	}
	items := map[ParamType]any{
		TypeInteger: []any{7},
		TypeString:  []any{"a"},
	}

	for _, c := range DefaultCatalog().All() {
		t.Run(c.Name, func(t *testing.T) {
			data := map[string]any{}
			want := []any{}
			for _, p := range c.Params {
				v, ok := sample[p.Type]
				if p.Items != "" {
					v, ok = items[p.Items]
				}
				require.True(t, ok, "no sample for %s", p.Type)
				data[p.Name] = v
				want = append(want, v)
			}

			cfg := c.RequestConfig(data)
			require.True(t, strings.HasPrefix(cfg.URL, c.Path()))

			var path []string
			if rest := strings.TrimPrefix(cfg.URL, c.Path()); rest != "" {
				path = strings.Split(strings.TrimPrefix(rest, "/"), "/")
			}

			var body map[string]any
			if cfg.Body != nil {
				raw, err := json.Marshal(cfg.Body)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(raw, &body))
			}

			got, err := c.Resolve(path, cfg.Query(), body)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template(map[string]any{
		"NAME":   "vm",
		"MEMORY": float64(512),
		"DISK": []any{
			map[string]any{"IMAGE_ID": "1"},
			map[string]any{"IMAGE_ID": "2", "SIZE": "1024"},
		},
		"DESCRIPTION": `say "hi"`,
	})

	want := strings.Join([]string{
		`DESCRIPTION="say \"hi\""`,
		"DISK=[",
		`  IMAGE_ID="1" ]`,
		"DISK=[",
		`  IMAGE_ID="2",`,
		`  SIZE="1024" ]`,
		`MEMORY="512"`,
		`NAME="vm"`,
	}, "\n")
	assert.Equal(t, want, tmpl)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		typ     ParamType
		in      any
		want    any
		wantErr bool
	}{
		{"int from string", TypeInteger, " 12 ", 12, false},
		{"int from json number", TypeInteger, json.Number("3"), 3, false},
		{"int from bool", TypeInteger, true, 1, false},
		{"int from slice", TypeInteger, []any{}, nil, true},
		{"bool from string", TypeBoolean, "false", false, false},
		{"bool from number", TypeBoolean, float64(1), true, false},
		{"bool from json number", TypeBoolean, json.Number("1"), true, false},
		{"bool from json zero", TypeBoolean, json.Number("0"), false, false},
		{"bool from bad json number", TypeBoolean, json.Number("x"), nil, true},
		{"bool garbage", TypeBoolean, "maybe", nil, true},
		{"string from float", TypeString, float64(2.5), "2.5", false},
		{"string from json number", TypeString, json.Number("10"), "10", false},
		{"array from json", TypeArray, `[1,"b"]`, []any{float64(1), "b"}, false},
		{"array empty string", TypeArray, "", []any{}, false},
		{"array json numbers", TypeArray, []any{json.Number("1"), json.Number("1.5")}, []any{1, 1.5}, false},
		{"object from json", TypeObject, `{"a":1}`, map[string]any{"a": float64(1)}, false},
		{"object garbage", TypeObject, "nope", nil, true},
		{"xml passthrough", TypeXML, `NAME="a"`, `NAME="a"`, false},
		{"xml from number", TypeXML, 5, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
