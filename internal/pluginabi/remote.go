package pluginabi

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// abiProto is the PluginABI service definition, parsed at runtime via
// protoreflect rather than generated by protoc — the same
// no-codegen-required pattern internal/builtin's System::Net::Grpc
// combinators use for arbitrary user .proto files. A remote module is
// anything implementing this one fixed service.
const abiProto = `
syntax = "proto3";
package egel.pluginabi;

message Empty {}
message ImportList { repeated string names = 1; }

service PluginABI {
  rpc Imports(Empty) returns (ImportList);
  rpc Exports(Empty) returns (Empty);
}
`

const abiFile = "egel_pluginabi.proto"

func abiFileDescriptor() (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{abiFile: abiProto}),
	}
	fds, err := parser.ParseFiles(abiFile)
	if err != nil {
		return nil, fmt.Errorf("pluginabi: parsing embedded ABI schema: %w", err)
	}
	return fds[0], nil
}

// Remote is a dynamic module reached over gRPC: a module that can't be
// co-located as a native .so exposes this service instead, and the
// module manager treats it exactly like a Native plugin otherwise.
type Remote struct {
	conn *grpc.ClientConn
	fd   *desc.FileDescriptor
}

// DialRemote connects to target (host:port) and loads the ABI schema.
func DialRemote(target string) (*Remote, error) {
	fd, err := abiFileDescriptor()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("pluginabi: dial %s: %w", target, err)
	}
	return &Remote{conn: conn, fd: fd}, nil
}

func (r *Remote) Close() error { return r.conn.Close() }

func (r *Remote) service() *desc.ServiceDescriptor {
	return r.fd.FindService("egel.pluginabi.PluginABI")
}

func (r *Remote) call(ctx context.Context, method string) (*dynamic.Message, error) {
	md := r.service().FindMethodByName(method)
	req := dynamic.NewMessage(md.GetInputType())
	resp := dynamic.NewMessage(md.GetOutputType())
	fullMethod := fmt.Sprintf("/egel.pluginabi.PluginABI/%s", method)
	if err := r.conn.Invoke(ctx, fullMethod, req, resp); err != nil {
		return nil, fmt.Errorf("pluginabi: %s: %w", method, err)
	}
	return resp, nil
}

// Imports calls the remote module's Imports RPC and returns the names
// field of the resulting ImportList.
func (r *Remote) Imports() ([]string, error) {
	resp, err := r.call(context.Background(), "Imports")
	if err != nil {
		return nil, err
	}
	raw, err := resp.TryGetFieldByName("names")
	if err != nil {
		return nil, fmt.Errorf("pluginabi: malformed ImportList: %w", err)
	}
	items, _ := raw.([]interface{})
	names := make([]string, 0, len(items))
	for _, v := range items {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// Exports calls the remote module's Exports RPC. Unlike Native.Exports,
// a remote module installs its own combinators as host callbacks against
// its own process's Machine; this call only signals that it has done so
// and is ready to serve invocations made through System::Net::Grpc.
func (r *Remote) Exports() error {
	_, err := r.call(context.Background(), "Exports")
	return err
}
