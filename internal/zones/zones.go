// Package zones resolves zone ids to the oned and ZeroMQ endpoints serving them.
package zones

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/config"
	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/opennebula"
)

// ErrZoneNotFound is returned when neither the config nor oned knows the zone.
var ErrZoneNotFound = errors.New("zone not found")

// Zone holds the endpoints of one federation zone.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	RPC    string `json:"rpc"`
	ZeroMQ string `json:"zeromq"`
}

// Connector hands out oned callers by endpoint. *opennebula.Pool implements it.
type Connector interface {
	Caller(endpoint string) (opennebula.Caller, error)
}

// Resolver maps zone ids to endpoints.
type Resolver struct {
	cfg        config.OpenNebulaConfig
	connector  Connector
	configured map[string]Zone
	cache      *expirable.LRU[string, Zone]
	logger     *zap.Logger
}

// NewResolver builds a resolver from the opennebula config section.
func NewResolver(cfg config.OpenNebulaConfig, connector Connector, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	configured := make(map[string]Zone, len(cfg.Zones)+1)
	for _, z := range cfg.Zones {
		configured[z.ID] = fromConfig(z, "")
	}
	def := cfg.DefaultZoneConfig()
	configured[def.ID] = fromConfig(def, cfg.ZeroMQ)

	size := cfg.ZoneCacheSize
	if size <= 0 {
		size = 32
	}

	return &Resolver{
		cfg:        cfg,
		connector:  connector,
		configured: configured,
		cache:      expirable.NewLRU[string, Zone](size, nil, cfg.ZoneCacheTTL),
		logger:     logger.With(zap.String(logging.FieldComponent, "zones")),
	}
}

func fromConfig(z config.ZoneConfig, fallbackZMQ string) Zone {
	zmq := z.ZeroMQ
	if zmq == "" {
		zmq = fallbackZMQ
	}
	return Zone{ID: z.ID, Name: z.Name, RPC: z.RPC, ZeroMQ: zmq}
}

// Default returns the default zone.
func (r *Resolver) Default() Zone {
	return r.configured[r.cfg.DefaultZone]
}

// Configured returns the zones known from configuration, default zone first.
func (r *Resolver) Configured() []Zone {
	out := []Zone{r.Default()}
	for _, z := range r.cfg.Zones {
		if z.ID != r.cfg.DefaultZone {
			out = append(out, r.configured[z.ID])
		}
	}
	return out
}

// Resolve returns the zone with the given id. An empty id selects the default
// zone. Zones missing from the config are looked up through the default zone's
// oned with session and cached.
func (r *Resolver) Resolve(ctx context.Context, session, id string) (Zone, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return r.Default(), nil
	}
	if z, ok := r.configured[id]; ok {
		return z, nil
	}
	if z, ok := r.cache.Get(id); ok {
		return z, nil
	}

	numeric, err := strconv.Atoi(id)
	if err != nil || numeric < 0 {
		return Zone{}, fmt.Errorf("%w: %q", ErrZoneNotFound, id)
	}

	z, err := r.lookup(ctx, session, numeric)
	if err != nil {
		return Zone{}, err
	}

	r.cache.Add(id, z)
	r.logger.Debug("zone resolved", zap.String(logging.FieldZone, id), zap.String("rpc", z.RPC))
	return z, nil
}

func (r *Resolver) lookup(ctx context.Context, session string, id int) (Zone, error) {
	caller, err := r.connector.Caller(r.Default().RPC)
	if err != nil {
		return Zone{}, err
	}

	result, err := caller.Call(ctx, "zone.info", session, id)
	if err != nil {
		var oneErr *opennebula.Error
		if errors.As(err, &oneErr) && oneErr.Code == opennebula.CodeNoExists {
			return Zone{}, fmt.Errorf("%w: %d", ErrZoneNotFound, id)
		}
		return Zone{}, err
	}

	doc, ok := result.(string)
	if !ok {
		return Zone{}, fmt.Errorf("unexpected zone.info result %T", result)
	}
	m, err := opennebula.XMLToMap([]byte(doc))
	if err != nil {
		return Zone{}, err
	}

	zone, _ := m["ZONE"].(map[string]any)
	template, _ := zone["TEMPLATE"].(map[string]any)
	endpoint, _ := template["ENDPOINT"].(string)
	if endpoint == "" {
		return Zone{}, fmt.Errorf("%w: zone %d has no endpoint", ErrZoneNotFound, id)
	}
	name, _ := zone["NAME"].(string)

	zmq, err := zeroMQEndpoint(endpoint, r.cfg.ZeroMQPort)
	if err != nil {
		return Zone{}, err
	}

	return Zone{ID: strconv.Itoa(id), Name: name, RPC: endpoint, ZeroMQ: zmq}, nil
}

// zeroMQEndpoint derives the hook publisher address from a zone's RPC URL.
func zeroMQEndpoint(rpc string, port int) (string, error) {
	u, err := url.Parse(rpc)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid zone endpoint %q", rpc)
	}
	if port <= 0 {
		port = 2101
	}
	return "tcp://" + net.JoinHostPort(u.Hostname(), strconv.Itoa(port)), nil
}
