package utils

import (
	"testing"

	"go.viam.com/test"
)

type sampleConfig struct {
	Name   string  `json:"name"`
	Levels int     `json:"num_levels"`
	Scale  float64 `json:"scale_factor,omitempty"`
}

func TestTransformAttributeMap(t *testing.T) {
	attrs := AttributeMap{"name": "left", "num_levels": "8", "scale_factor": 1.2}
	test.That(t, attrs.Has("name"), test.ShouldBeTrue)
	test.That(t, attrs.Has("fx"), test.ShouldBeFalse)

	cfg, err := TransformAttributeMap[*sampleConfig](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, &sampleConfig{Name: "left", Levels: 8, Scale: 1.2})

	byValue, err := TransformAttributeMap[sampleConfig](attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, byValue.Levels, test.ShouldEqual, 8)

	_, err = TransformAttributeMap[*sampleConfig](AttributeMap{"name": "left", "nmae": "typo"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nmae")

	_, err = TransformAttributeMap[interface{}](attrs)
	test.That(t, err, test.ShouldNotBeNil)
}
