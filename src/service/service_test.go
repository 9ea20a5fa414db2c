package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/mosaicnetworks/rtinet/src/node"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/prometheus/client_golang/prometheus"
)

const testModel = `
name: traffic
time: HLAfloat64Time
objectClasses:
  - name: HLAobjectRoot
interactionClasses:
  - name: HLAinteractionRoot
`

func newTestService(t *testing.T) (*Service, *node.Node) {
	_, trans := net.NewInmemTransport("root")
	reg := prometheus.NewRegistry()

	n, err := node.NewNode(node.TestConfig(t, "root"), trans, store.NewInmemStore(), reg)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Init(); err != nil {
		t.Fatal(err)
	}
	n.RunAsync()
	t.Cleanup(n.Shutdown)

	s := NewService("", n, reg, time.Second, common.NewTestEntry(t, common.TestLogLevel))
	return s, n
}

func get(t *testing.T, srv *httptest.Server, path string) []byte {
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestService(t *testing.T) {
	s, n := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	model, err := fom.Decode(strings.NewReader(testModel))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := n.Request(ctx, &message.Request{Op: message.OpCreate, Name: "traffic", Model: model}); err != nil {
		t.Fatal(err)
	}

	var stats map[string]string
	if err := json.Unmarshal(get(t, srv, "/stats"), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["root"] != "true" || stats["federations"] != "1" {
		t.Fatalf("unexpected stats %v", stats)
	}

	var infos []message.FederationInfo
	if err := json.Unmarshal(get(t, srv, "/federations"), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != "traffic" || infos[0].Time != "HLAfloat64Time" {
		t.Fatalf("unexpected federations %+v", infos)
	}

	metrics := string(get(t, srv, "/metrics"))
	for _, m := range []string{"rtinet_node_federation_executions 1", `rtinet_federation_federates{federation="traffic"} 0`} {
		if !strings.Contains(metrics, m) {
			t.Fatalf("/metrics misses %s:\n%s", m, metrics)
		}
	}
}
