package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/urfave/cli"

	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"
	aws3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// GDALConfig configures the access of GDAL to the rasters
type GDALConfig struct {
	BlockSize       string
	NumCachedBlocks int
	WithGCS         bool
	WithS3          bool
	AwsRegion       string
	AwsEndpoint     string
	AwsCredentials  string
}

const (
	BlockSize       = "gdal-blocksize"
	NumCachedBlocks = "gdal-num-cached-blocks"
	WithGCS         = "with-gcs"
	WithS3          = "with-s3"
	AWSRegion       = "aws-region"
	AWSEndPoint     = "aws-endpoint"
	AwsCredentials  = "aws-shared-credentials-file"
)

// GDALConfigFlags returns the command line flags of GDALConfig
func GDALConfigFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: BlockSize, Value: "1Mb", Usage: "gdal blocksize value"},
		cli.IntFlag{Name: NumCachedBlocks, Value: 500, Usage: "gdal blockcache value"},
		cli.BoolFlag{Name: WithGCS, Usage: "configure GDAL to read rasters from gs:// (may need authentication)"},
		cli.BoolFlag{Name: WithS3, Usage: "configure GDAL to read rasters from s3:// (may need authentication)"},
		cli.StringFlag{Name: AWSRegion, Usage: "define aws_region for GDAL to use s3 storage (--with-s3)"},
		cli.StringFlag{Name: AWSEndPoint, Usage: "define aws_endpoint for GDAL to use s3 storage (--with-s3)"},
		cli.StringFlag{Name: AwsCredentials, Usage: "define aws_shared_credentials_file for GDAL to use s3 storage (--with-s3)"},
	}
}

// NewGDALConfig reads the flags defined by GDALConfigFlags
func NewGDALConfig(c *cli.Context) *GDALConfig {
	return &GDALConfig{
		BlockSize:       c.GlobalString(BlockSize),
		NumCachedBlocks: c.GlobalInt(NumCachedBlocks),
		WithGCS:         c.GlobalBool(WithGCS),
		WithS3:          c.GlobalBool(WithS3),
		AwsRegion:       c.GlobalString(AWSRegion),
		AwsEndpoint:     c.GlobalString(AWSEndPoint),
		AwsCredentials:  c.GlobalString(AwsCredentials),
	}
}

// InitGDAL registers the drivers and the remote storage handlers
func InitGDAL(ctx context.Context, gdalConfig *GDALConfig) error {
	os.Setenv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	godal.RegisterAll()

	if gdalConfig.WithGCS {
		handle, err := osioGcs.Handle(ctx)
		if err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
		gcsa, err := osio.NewAdapter(handle,
			osio.BlockSize(gdalConfig.BlockSize),
			osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
		if err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
		if err = godal.RegisterVSIHandler("gs://", gcsa); err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
	}

	if gdalConfig.WithS3 {
		resolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				PartitionID:       "aws",
				URL:               gdalConfig.AwsEndpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		})
		opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(gdalConfig.AwsRegion)}
		if gdalConfig.AwsCredentials != "" {
			opts = append(opts, awsConfig.WithSharedCredentialsFiles([]string{gdalConfig.AwsCredentials}))
		}
		if gdalConfig.AwsEndpoint != "" {
			opts = append(opts, awsConfig.WithEndpointResolver(resolver))
		}
		config, err := awsConfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
		handle, err := osioS3.Handle(ctx, osioS3.S3Client(aws3.NewFromConfig(config)))
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
		s3a, err := osio.NewAdapter(handle,
			osio.BlockSize(gdalConfig.BlockSize),
			osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
		if err = godal.RegisterVSIHandler("s3://", s3a); err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
	}
	return nil
}
