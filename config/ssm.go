package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/skillarena/backend/errs"
)

// ParameterReader is the part of the SSM client LoadSSMParameters uses.
type ParameterReader interface {
	GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain.
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.NewConfigError("AWS", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// LoadSSMParameters reads every parameter below prefix, decrypted, and keys
// it by the last path element: /skillarena/prod/JWT_SECRET becomes JWT_SECRET.
func LoadSSMParameters(ctx context.Context, client ParameterReader, prefix string) (map[string]string, error) {
	prefix = "/" + strings.Trim(prefix, "/")
	params := make(map[string]string)

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errs.NewUpstreamError("ssm", fmt.Errorf("get parameters under %s: %w", prefix, err))
		}
		for _, p := range page.Parameters {
			name := path.Base(aws.ToString(p.Name))
			if name == "" || name == "/" || name == "." {
				continue
			}
			params[name] = aws.ToString(p.Value)
		}
	}
	return params, nil
}

// Load reads the process environment, layers SSM parameters under it when
// SSM_PARAMETER_PREFIX is set, and validates the result.
func Load(ctx context.Context) (Config, error) {
	environ := New()
	cfg, err := Parse(environ, nil)
	if err != nil {
		return Config{}, err
	}

	if cfg.SSMParameterPrefix != "" {
		client, err := NewSSMClient(ctx, cfg.AWSRegion)
		if err != nil {
			return Config{}, err
		}
		params, err := LoadSSMParameters(ctx, client, cfg.SSMParameterPrefix)
		if err != nil {
			return Config{}, err
		}
		if cfg, err = Parse(environ, params); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
