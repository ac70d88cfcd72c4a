package signal

import (
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSign(t *testing.T) {
	cases := map[float64]Direction{
		2.5:         Long,
		-0.1:        Short,
		0:           Flat,
		math.NaN():  Flat,
		math.Inf(1): Flat,
	}
	for in, want := range cases {
		if got := Sign(in); got != want {
			t.Fatalf("Sign(%v) expected %v got %v", in, want, got)
		}
	}
}

func TestParamYAML(t *testing.T) {
	var params []Param
	if err := yaml.Unmarshal([]byte("[EMA, 20, 2.5]"), &params); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(params))
	}
	if !params[0].IsName() || params[0].Name != "ema" {
		t.Fatalf("expected lower-cased name param, got %+v", params[0])
	}
	if params[1].Int() != 20 || params[2].Num != 2.5 {
		t.Fatalf("unexpected numeric params %+v", params)
	}

	out, err := yaml.Marshal(params)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again []Param
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if again[0].Name != "ema" || again[2].Num != 2.5 {
		t.Fatalf("unexpected round trip %+v", again)
	}
}

func TestParamYAMLRejectsSequence(t *testing.T) {
	var params []Param
	if err := yaml.Unmarshal([]byte("[[1, 2]]"), &params); err == nil {
		t.Fatalf("expected nested sequence to fail")
	}
}
