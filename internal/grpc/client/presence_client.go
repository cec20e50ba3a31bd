// 文件路径: internal/grpc/client/presence_client.go
// 模块说明: PresenceService 客户端，供终端监控界面和运维脚本使用。
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/creamcroissant/xboard-presence/internal/grpc/handler"
)

// Config 保存客户端配置。
type Config struct {
	Address string
	Token   string
	TLS     *TLSConfig
	Timeout time.Duration
	// DialOptions are appended after the defaults.
	DialOptions []grpc.DialOption
}

// TLSConfig 保存 TLS 设置。
type TLSConfig struct {
	Enabled            bool
	CAFile             string
	InsecureSkipVerify bool
}

// Device is one online device as returned by UserDevices.
type Device struct {
	IP       string
	NodeType string
	NodeID   int64
	NodeKey  string
	LastSeen int64
}

// PresenceClient 封装与 PresenceService 的连接。
type PresenceClient struct {
	conn    *grpc.ClientConn
	token   string
	timeout time.Duration
}

// NewPresenceClient 创建客户端。连接在第一次调用时建立。
func NewPresenceClient(cfg Config) (*PresenceClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := []grpc.DialOption{
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsCfg, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("create presence gRPC client: %w", err)
	}
	return &PresenceClient{conn: conn, token: cfg.Token, timeout: cfg.Timeout}, nil
}

func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("CA certificate parse failed / CA 证书解析失败")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// Close 关闭底层连接。
func (c *PresenceClient) Close() error {
	return c.conn.Close()
}

func (c *PresenceClient) withAuth(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return ctx, cancel
}

// OnlineCounts returns the online device count of every requested user.
func (c *PresenceClient) OnlineCounts(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	values := make([]*structpb.Value, 0, len(userIDs))
	for _, id := range userIDs {
		values = append(values, structpb.NewNumberValue(float64(id)))
	}
	ctx, cancel := c.withAuth(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, handler.PresenceOnlineCountsRPC, &structpb.ListValue{Values: values}, out); err != nil {
		return nil, err
	}
	result := make(map[int64]int)
	for key, value := range out.GetFields() {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		result[id] = int(value.GetNumberValue())
	}
	return result, nil
}

// UserDevices returns the alive_ip total and the device list of one user.
func (c *PresenceClient) UserDevices(ctx context.Context, userID int64) (int, []Device, error) {
	ctx, cancel := c.withAuth(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, handler.PresenceUserDevicesRPC, wrapperspb.Int64(userID), out); err != nil {
		return 0, nil, err
	}
	fields := out.GetFields()
	total := int(fields["total_count"].GetNumberValue())
	items := fields["devices"].GetListValue().GetValues()
	devices := make([]Device, 0, len(items))
	for _, item := range items {
		f := item.GetStructValue().GetFields()
		devices = append(devices, Device{
			IP:       f["ip"].GetStringValue(),
			NodeType: f["node_type"].GetStringValue(),
			NodeID:   int64(f["node_id"].GetNumberValue()),
			NodeKey:  f["node_key"].GetStringValue(),
			LastSeen: int64(f["last_seen"].GetNumberValue()),
		})
	}
	return total, devices, nil
}
