package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/golang/groupcache"
	"github.com/skip2/go-qrcode"

	"github.com/yeisme/filedrop/pkg/configs"
)

// QRSize 二维码边长（像素）.
const QRSize = 256

var (
	groupMu  sync.Mutex
	poolOnce sync.Once
	peerPool *groupcache.HTTPPool
)

// qrGroup 组名在进程内全局唯一，重复构造时复用已注册的组.
func qrGroup(cfg configs.GroupcacheConfig) *groupcache.Group {
	groupMu.Lock()
	defer groupMu.Unlock()

	if g := groupcache.GetGroup(cfg.Name); g != nil {
		return g
	}

	return groupcache.NewGroup(cfg.Name, cfg.CacheBytes, groupcache.GetterFunc(
		func(_ context.Context, key string, dest groupcache.Sink) error {
			png, err := qrcode.Encode(key, qrcode.Medium, QRSize)
			if err != nil {
				return fmt.Errorf("encode qr: %w", err)
			}

			return dest.SetBytes(png)
		}))
}

// QRService 渲染分享链接的二维码 PNG，经 groupcache 读穿缓存.
type QRService struct {
	group   *groupcache.Group
	records RecordStore
	baseURL string
}

// NewQRService 创建二维码服务. 配置了 peers 时同时建立节点池，PeerHandler 返回其 HTTP 入口.
func NewQRService(cfg configs.GroupcacheConfig, baseURL string, records RecordStore) *QRService {
	if cfg.Name == "" {
		cfg.Name = "filedrop-qrcode"
	}

	if cfg.CacheBytes <= 0 {
		cfg.CacheBytes = 8 << 20
	}

	if len(cfg.Peers) > 0 && cfg.Self != "" {
		poolOnce.Do(func() {
			peerPool = groupcache.NewHTTPPoolOpts(cfg.Self, &groupcache.HTTPPoolOptions{})
			peerPool.Set(cfg.Peers...)
		})
	}

	return &QRService{group: qrGroup(cfg), records: records, baseURL: baseURL}
}

// ShareURL 分享页的公开地址.
func (s *QRService) ShareURL(id string) string {
	return s.baseURL + "/s/" + id
}

// PNG 返回 id 对应分享链接的二维码，记录不存在时返回 ErrNotFound.
func (s *QRService) PNG(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	if rec == nil {
		return nil, ErrNotFound
	}

	var png []byte
	if err := s.group.Get(ctx, s.ShareURL(id), groupcache.AllocatingByteSliceSink(&png)); err != nil {
		return nil, err
	}

	return png, nil
}

// PeerHandler groupcache 节点间通信入口，未配置 peers 时为 nil.
func (s *QRService) PeerHandler() http.Handler {
	if peerPool == nil {
		return nil
	}

	return peerPool
}
