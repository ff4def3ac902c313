package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	pb "price-relay/src/grpc_control"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const usage = `usage: relayctl [-addr host:port] [-timeout 5s] <command>

commands:
  status     upstream state, subscriber count, last update
  prices     current price table
  reconnect  skip the reconnect wait (only when disconnected)
  watch      stream price pushes until interrupted
`

var printer = protojson.MarshalOptions{Multiline: true, Indent: "  "}

// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "gRPC control address")
	timeout := flag.Duration("timeout", 5*time.Second, "timeout for unary calls")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	client := pb.NewClient(conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client, flag.Arg(0), *timeout, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, client *pb.Client, cmd string, timeout time.Duration, out io.Writer) error {
	switch cmd {
	case "status":
		return unary(ctx, timeout, out, client.GetStatus)
	case "prices":
		return unary(ctx, timeout, out, client.GetPrices)
	case "reconnect":
		return unary(ctx, timeout, out, client.Reconnect)
	case "watch":
		return watch(ctx, client, out)
	default:
		return fmt.Errorf("unknown command")
	}
}

// -----------------------------------------------------------------------------

func unary(ctx context.Context, timeout time.Duration, out io.Writer, call func(context.Context, ...grpc.CallOption) (*structpb.Struct, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := call(ctx)
	if err != nil {
		return err
	}
	return printMessage(out, msg)
}

// -----------------------------------------------------------------------------

func watch(ctx context.Context, client *pb.Client, out io.Writer) error {
	w, err := client.WatchPrices(ctx)
	if err != nil {
		return err
	}

	for {
		msg, err := w.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		if err := printMessage(out, msg); err != nil {
			return err
		}
	}
}

func printMessage(out io.Writer, msg proto.Message) error {
	b, err := printer.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
