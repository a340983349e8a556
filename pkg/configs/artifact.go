package configs

import "github.com/spf13/viper"

// ArtifactType 工件存储后端类型.
type ArtifactType string

const (
	ArtifactLocal ArtifactType = "local"
	ArtifactS3    ArtifactType = "s3"

	DefaultArtifactType     = ArtifactLocal
	DefaultArtifactLocalDir = "uploads"
)

// ArtifactConfig 上传文件的字节存放位置.
type ArtifactConfig struct {
	Type     ArtifactType `mapstructure:"type"      rule:"oneof=local s3"`
	LocalDir string       `mapstructure:"local_dir" rule:"required"`
}

func (c *ArtifactConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("artifact.type", DefaultArtifactType)
	v.SetDefault("artifact.local_dir", DefaultArtifactLocalDir)
}
