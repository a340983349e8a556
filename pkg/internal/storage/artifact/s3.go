package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	minio "github.com/minio/minio-go/v7"
	"github.com/sony/gobreaker"

	"github.com/yeisme/filedrop/pkg/configs"
	s3c "github.com/yeisme/filedrop/pkg/internal/storage/s3"
	nlog "github.com/yeisme/filedrop/pkg/log"
)

// S3 把工件保存为 bucket 中的对象，所有远程调用经过熔断器.
type S3 struct {
	client *s3c.Client
	cb     *gobreaker.CircuitBreaker
}

func init() {
	RegisterFactory(configs.ArtifactS3, func(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
		client, err := s3c.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}

		return NewS3(client, cfg.CircuitBreaker), nil
	})
}

// NewS3 基于已创建的客户端构建 S3 工件存储.
func NewS3(client *s3c.Client, cbCfg configs.CircuitBreakerConfig) *S3 {
	l := nlog.Component("artifact.s3")

	settings := gobreaker.Settings{
		Name:        "artifact-s3",
		MaxRequests: cbCfg.MaxRequestsInHalf,
		Interval:    time.Duration(cbCfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cbCfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cbCfg.MinRequests {
				return false
			}

			return float64(c.TotalFailures)/float64(c.Requests) >= cbCfg.FailureRate
		},
		// 对象不存在或已存在是正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &S3{client: client, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (s *S3) Kind() configs.ArtifactType { return configs.ArtifactS3 }

func (s *S3) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	res, err := s.cb.Execute(func() (any, error) {
		info, err := s.client.StatObject(ctx, s.client.Bucket, s.client.ObjectName(key), minio.StatObjectOptions{})
		if s3c.IsNotFound(err) {
			return nil, ErrNotFound
		}

		return info, err
	})
	if err != nil {
		return minio.ObjectInfo{}, err
	}

	return res.(minio.ObjectInfo), nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	_, err := s.stat(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Delete S3 的 RemoveObject 本身对不存在的对象返回成功.
func (s *S3) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := s.cb.Execute(func() (any, error) {
		err := s.client.RemoveObject(ctx, s.client.Bucket, s.client.ObjectName(key), minio.RemoveObjectOptions{})
		if s3c.IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	})
	if err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

func (s *S3) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Info, error) {
	if err := ValidateKey(key); err != nil {
		return Info{}, err
	}

	if _, err := s.stat(ctx, key); err == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	} else if !errors.Is(err, ErrNotFound) {
		return Info{}, fmt.Errorf("stat object %s: %w", key, err)
	}

	h := xxhash.New()
	tee := io.TeeReader(r, h)

	opts := minio.PutObjectOptions{ContentType: contentType}
	// stat 与 put 之间的竞争由服务端的 If-None-Match: * 兜底
	opts.SetMatchETagExcept("*")

	res, err := s.cb.Execute(func() (any, error) {
		up, err := s.client.PutObject(ctx, s.client.Bucket, s.client.ObjectName(key), tee, size, opts)
		if s3c.IsPreconditionFailed(err) {
			return nil, ErrExists
		}

		return up, err
	})
	if errors.Is(err, ErrExists) {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}

	if err != nil {
		return Info{}, fmt.Errorf("put object %s: %w", key, err)
	}

	up := res.(minio.UploadInfo)

	return Info{Size: up.Size, Checksum: strconv.FormatUint(h.Sum64(), 16)}, nil
}

// Open 先 stat 再取对象，使不存在的 key 立即返回 ErrNotFound 而不是在首次 Read 时才失败.
func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	if _, err := s.stat(ctx, key); err != nil {
		return nil, err
	}

	res, err := s.cb.Execute(func() (any, error) {
		return s.client.GetObject(ctx, s.client.Bucket, s.client.ObjectName(key), minio.GetObjectOptions{})
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	return res.(*minio.Object), nil
}

func (s *S3) Size(ctx context.Context, key string) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}

	info, err := s.stat(ctx, key)
	if err != nil {
		return 0, err
	}

	return info.Size, nil
}

func (s *S3) HealthCheck(ctx context.Context) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.client.HealthCheck(ctx)
	})

	return err
}
