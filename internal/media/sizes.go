package media

import "regexp"

type sizeBucket struct {
	name   string
	width  int
	height int
}

// Supported thumbnail buckets, ascending. The smallest bucket doubles as the
// default, so any parseable request below it clamps to the default.
var sizeBuckets = []sizeBucket{
	{"w640h480", 640, 480},
	{"w960h640", 960, 640},
	{"w1024h768", 1024, 768},
	{"w1536h1024", 1536, 1024},
	{"w2048h1536", 2048, 1536},
}

// DefaultSizeBucket is used whenever the requested size cannot be parsed.
const DefaultSizeBucket = "w640h480"

var sizePattern = regexp.MustCompile(`^w(\d{1,5})h(\d{1,5})$`)

// ClampSize maps any requested size onto a supported bucket. A supported
// bucket passes through; a parseable "w<W>h<H>" rounds up to the smallest
// bucket covering both dimensions (the maximum bucket when none does);
// anything else falls back to the default. Never fails.
func ClampSize(requested string) string {
	for _, b := range sizeBuckets {
		if b.name == requested {
			return b.name
		}
	}
	m := sizePattern.FindStringSubmatch(requested)
	if m == nil {
		return DefaultSizeBucket
	}
	w := atoiSize(m[1])
	h := atoiSize(m[2])
	if w <= 0 || h <= 0 {
		return DefaultSizeBucket
	}
	for _, b := range sizeBuckets {
		if b.width >= w && b.height >= h {
			return b.name
		}
	}
	return sizeBuckets[len(sizeBuckets)-1].name
}

func bucketDims(name string) (int, int) {
	for _, b := range sizeBuckets {
		if b.name == name {
			return b.width, b.height
		}
	}
	return 640, 480
}

func atoiSize(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 1 << 20
		}
	}
	return n
}
