package stac

import "github.com/paulmach/orb"

// DefaultRegion is the area of interest near Elizabethtown, Kentucky that
// every search intersects against.
func DefaultRegion() orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{-85.76975230223191, 37.63831975175371},
			{-85.79792299732526, 37.556622960281146},
			{-85.77917808348003, 37.558211386666116},
			{-85.7731342906098, 37.58369784583759},
			{-85.76039471747762, 37.61128549203865},
			{-85.74833151247218, 37.63142760638745},
			{-85.51777647369674, 37.62988516059704},
			{-85.51709126957944, 37.64263083576242},
			{-85.64388882701948, 37.64311140194164},
			{-85.76975230223191, 37.63831975175371},
		},
	}
}
