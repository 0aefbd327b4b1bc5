package grpcauth

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"authcore/session"
)

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for,
// x-real-ip) or peer, or "unknown". Forwarding headers win over the socket
// address because gRPC traffic usually arrives through a gateway.
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}

// DeviceFromContext assembles the device record for a login or refresh RPC
// from request metadata, so handlers can pass it straight through to the
// session layer.
func DeviceFromContext(ctx context.Context) session.DeviceInfo {
	return session.DeviceInfo{
		UserAgent: userAgent(ctx),
		IP:        ClientIP(ctx),
	}
}

// userAgent returns the grpc-go supplied user-agent metadata value, or "".
func userAgent(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get("user-agent"); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
