package builtin

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/egel/internal/machine"
	"github.com/funvibe/egel/internal/term"
)

// grpcConn and protoFile are the Opaque payloads installGrpc's
// combinators box and unbox: a client connection and a parsed .proto
// file's method descriptors, the same split the teacher's
// GrpcConnObject/protoRegistry keep, ported to this term model's Opaque
// variant instead of a typed Object interface.
type grpcConn struct{ conn *grpc.ClientConn }

type protoFile struct{ fd *desc.FileDescriptor }

var (
	protoMu       sync.RWMutex
	protoRegistry = map[string]*desc.FileDescriptor{}
)

// installGrpc registers System::Net::Grpc::* — connect, load a .proto
// file by path (no protoc, parsed at runtime via protoreflect), invoke a
// unary method by fully qualified name with a JSON-ish text payload
// (dynamic.Message.MarshalJSON), and close. internal/pluginabi's remote
// ABI uses the same reflection-based dispatch to reach a module that
// can't be loaded as a local plugin.
func installGrpc(m *machine.Machine, k *kit) {
	bind(m, "System::Net::Grpc::connect", builtinDef{arity: 1, host: grpcConnect})
	bind(m, "System::Net::Grpc::close", builtinDef{arity: 1, host: grpcClose(k)})
	bind(m, "System::Net::Grpc::load_proto", builtinDef{arity: 1, host: grpcLoadProto})
	bind(m, "System::Net::Grpc::invoke", builtinDef{arity: 3, host: grpcInvoke})
}

func grpcConnect(ds term.DataSource, args []*term.Term) (*term.Term, error) {
	target, err := force(ds, args[0])
	if err != nil {
		return nil, err
	}
	if target.Tag != term.TagText {
		return nil, wrongType("System::Net::Grpc::connect", target)
	}
	conn, err := grpc.NewClient(target.Text, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &term.RaiseSignal{Value: term.NewText(err.Error())}
	}
	return term.NewOpaque(&grpcConn{conn: conn}), nil
}

func grpcClose(k *kit) term.HostFunc {
	return func(ds term.DataSource, args []*term.Term) (*term.Term, error) {
		v, err := force(ds, args[0])
		if err != nil {
			return nil, err
		}
		c, ok := v.Op.(*grpcConn)
		if !ok {
			return nil, wrongType("System::Net::Grpc::close", v)
		}
		if err := c.conn.Close(); err != nil {
			return nil, &term.RaiseSignal{Value: term.NewText(err.Error())}
		}
		return k.none, nil
	}
}

func grpcLoadProto(ds term.DataSource, args []*term.Term) (*term.Term, error) {
	path, err := force(ds, args[0])
	if err != nil {
		return nil, err
	}
	if path.Tag != term.TagText {
		return nil, wrongType("System::Net::Grpc::load_proto", path)
	}
	parser := protoparse.Parser{ImportPaths: []string{"."}}
	fds, err := parser.ParseFiles(path.Text)
	if err != nil {
		return nil, &term.RaiseSignal{Value: term.NewText(err.Error())}
	}
	if len(fds) == 0 {
		return nil, &term.RaiseSignal{Value: term.NewText("no descriptors parsed from " + path.Text)}
	}
	protoMu.Lock()
	protoRegistry[path.Text] = fds[0]
	protoMu.Unlock()
	return term.NewOpaque(&protoFile{fd: fds[0]}), nil
}

// grpcInvoke calls method (service/method) over conn with a JSON request
// payload, using protoreflect's dynamic message so no generated stub is
// required. The response is returned as its JSON text rendering.
func grpcInvoke(ds term.DataSource, args []*term.Term) (*term.Term, error) {
	connV, err := force(ds, args[0])
	if err != nil {
		return nil, err
	}
	methodV, err := force(ds, args[1])
	if err != nil {
		return nil, err
	}
	payloadV, err := force(ds, args[2])
	if err != nil {
		return nil, err
	}
	c, ok := connV.Op.(*grpcConn)
	if !ok {
		return nil, wrongType("System::Net::Grpc::invoke", connV)
	}
	if methodV.Tag != term.TagText || payloadV.Tag != term.TagText {
		return nil, fmt.Errorf("System::Net::Grpc::invoke: method and payload must be text")
	}

	svcName, methodName, ok := splitMethod(methodV.Text)
	if !ok {
		return nil, &term.RaiseSignal{Value: term.NewText("malformed method " + methodV.Text)}
	}
	svc, methodDesc, ok := findMethod(svcName, methodName)
	if !ok {
		return nil, &term.RaiseSignal{Value: term.NewText("unknown method " + methodV.Text)}
	}

	req := dynamic.NewMessage(methodDesc.GetInputType())
	if err := req.UnmarshalJSON([]byte(payloadV.Text)); err != nil {
		return nil, &term.RaiseSignal{Value: term.NewText(err.Error())}
	}
	resp := dynamic.NewMessage(methodDesc.GetOutputType())
	fullMethod := fmt.Sprintf("/%s/%s", svc, methodName)
	if err := c.conn.Invoke(context.Background(), fullMethod, req, resp); err != nil {
		return nil, &term.RaiseSignal{Value: term.NewText(err.Error())}
	}
	out, err := resp.MarshalJSON()
	if err != nil {
		return nil, &term.RaiseSignal{Value: term.NewText(err.Error())}
	}
	return term.NewText(string(out)), nil
}

func splitMethod(s string) (service, method string, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func findMethod(service, method string) (string, *desc.MethodDescriptor, bool) {
	protoMu.RLock()
	defer protoMu.RUnlock()
	for _, fd := range protoRegistry {
		for _, sd := range fd.GetServices() {
			if sd.GetFullyQualifiedName() != service && sd.GetName() != service {
				continue
			}
			for _, md := range sd.GetMethods() {
				if md.GetName() == method {
					return sd.GetFullyQualifiedName(), md, true
				}
			}
		}
	}
	return "", nil, false
}
