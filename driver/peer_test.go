package driver

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yingshulu/apiclient/api"
	"github.com/yingshulu/apiclient/binding"
	"github.com/yingshulu/apiclient/codec"
	"github.com/yingshulu/apiclient/mapping"
	"github.com/yingshulu/apiclient/protocol"
	"github.com/yingshulu/apiclient/transport"
)

const (
	testNamespace  = "urn:APIService"
	testActionBase = "/api"
)

type Person struct {
	Name string `json:"name" msgpack:"name"`
}

type handler func(req *protocol.Message) *protocol.Message

func personAPI() *api.API {
	return api.New("PersonAPI").
		Method("FindAll", api.Returns(api.TypeOf[[]Person]())).
		Method("FindByName", api.Expects(api.Arg(api.TypeOf[string]())), api.Returns(api.TypeOf[*Person]())).
		Method("Count", api.Returns(api.TypeOf[int]())).
		Method("Remove", api.Expects(api.NamedArg("name", api.TypeOf[string]()))).
		Method("Explode", api.Returns(api.TypeOf[string]()))
}

func register(t *testing.T, d *Driver) {
	t.Helper()
	table, err := binding.NewBuilder(testNamespace, testActionBase, mapping.NewRegistry(testNamespace)).
		Build(personAPI().Operations())
	require.NoError(t, err)
	require.NoError(t, binding.Install(table, d))
}

func service(local string) string {
	return mapping.QName{Namespace: testNamespace, Local: local}.String()
}

func personHandler(req *protocol.Message) *protocol.Message {
	reply := &protocol.Message{Type: protocol.ReplyType, ID: req.ID, Codec: req.Codec, Service: req.Service}
	serialization := req.Codec.String()

	switch req.Service {
	case service("FindAll"):
		reply.Data, _ = codec.Marshal(serialization, []Person{{Name: "ann"}, {Name: "bob"}})
	case service("FindByName"):
		var name string
		_ = codec.Unmarshal(serialization, req.Parts[0].Data, &name)
		if name != "nobody" {
			reply.Data, _ = codec.Marshal(serialization, &Person{Name: name})
		}
	case service("Count"):
		reply.Data, _ = codec.Marshal(serialization, 2)
	case service("Remove"):
	default:
		reply.Type = protocol.ErrorType
		reply.Error = "no such operation " + req.Service
	}
	return reply
}

// serveFrames answers requests and pings on t until it fails.
func serveFrames(t transport.Transport, h handler, answerPings bool) {
	defer t.Close()
	for {
		f, err := t.Read()
		if err != nil {
			return
		}
		req := &protocol.Message{}
		if err = req.Decode(f.Payload); err != nil {
			return
		}

		var reply *protocol.Message
		switch req.Type {
		case protocol.PingType:
			if !answerPings {
				continue
			}
			reply = &protocol.Message{Type: protocol.PongType, ID: req.ID}
		case protocol.RequestType:
			reply = h(req)
		default:
			continue
		}
		payload, _ := reply.Encode()
		if err = t.Write(transport.NewRpcFrame(payload)); err != nil {
			return
		}
	}
}

// pipeDialer serves every dialled connection in memory and counts dials.
func pipeDialer(h handler, answerPings bool, dials *int32) Dialer {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		atomic.AddInt32(dials, 1)
		client, server := net.Pipe()
		go func() {
			if _, err := transport.ServerNegotiate(server, "server", "conn-1", nil); err != nil {
				server.Close()
				return
			}
			serveFrames(transport.New(server), h, answerPings)
		}()
		return client, nil
	}
}
