// Package domain holds the venue-independent sampling model: sources, pools,
// fill data and quote samples.
package domain

// Source identifies one venue family.
type Source string

const (
	SourceBalancerV2 Source = "BalancerV2"
	SourceShell      Source = "Shell"
	SourceComponent  Source = "Component"
	SourceMStable    Source = "mStable"
	SourceDodo       Source = "DODO"
	SourceDodoV2     Source = "DODO_V2"
	SourceMooniswap  Source = "Mooniswap"
)

// AllSources lists every source in display order.
func AllSources() []Source {
	return []Source{
		SourceBalancerV2,
		SourceShell,
		SourceComponent,
		SourceMStable,
		SourceDodo,
		SourceDodoV2,
		SourceMooniswap,
	}
}

func (s Source) String() string {
	return string(s)
}
