package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/pkg/errors"

	"github.com/schoolvax/vax-app/conf"
)

type Dimension struct {
	Name  string
	Value string
}

type Sample struct {
	Name       string
	Value      float64
	Dimensions []Dimension
}

// Recorder publishes metric samples.
type Recorder interface {
	PutSamples(ctx context.Context, samples ...Sample) error
}

type Config struct {
	Namespace string `conf:"CLOUDWATCH_NAMESPACE"`
	Region    string `conf:"AWS_REGION" conf_default:"eu-west-2"`
}

type Sampler struct {
	Namespace string
	Unit      string
	Service   cloudwatchiface.CloudWatchAPI
}

// PutSamples sends all samples in a single PutMetricData call.
func (s *Sampler) PutSamples(ctx context.Context, samples ...Sample) error {
	if len(samples) == 0 {
		return nil
	}

	data := make([]*cloudwatch.MetricDatum, 0, len(samples))
	for _, sample := range samples {
		var d []*cloudwatch.Dimension
		for _, v := range sample.Dimensions {
			d = append(d, &cloudwatch.Dimension{
				Name:  aws.String(v.Name),
				Value: aws.String(v.Value),
			})
		}

		data = append(data, &cloudwatch.MetricDatum{
			Dimensions: d,
			MetricName: aws.String(sample.Name),
			Unit:       aws.String(s.Unit),
			Value:      aws.Float64(sample.Value),
		})
	}

	input := &cloudwatch.PutMetricDataInput{
		MetricData: data,
		Namespace:  aws.String(s.Namespace),
	}
	_, err := s.Service.PutMetricDataWithContext(ctx, input)
	return errors.Wrap(err, "failed to put metric data")
}

// NewRecorder returns a CloudWatch backed recorder, or a no-op one when no
// namespace is configured.
func NewRecorder(unit string) (Recorder, error) {
	var cfg Config
	if err := conf.Checkout(&cfg); err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		return noopRecorder{}, nil
	}

	s, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aws session")
	}
	return &Sampler{Namespace: cfg.Namespace, Unit: unit, Service: cloudwatch.New(s)}, nil
}

type noopRecorder struct{}

func (noopRecorder) PutSamples(ctx context.Context, samples ...Sample) error { return nil }
