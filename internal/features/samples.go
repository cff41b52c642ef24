package features

// Bundled reference samples. SampleHighQuality must strictly dominate
// SampleLowQuality on every canonical feature; the property is enforced
// by the test suite and exercised by the trainer smoke check.
const (
	SampleSection = "summary"

	SampleHighQuality = "Led a team of 12 engineers building cloud infrastructure on " +
		"Kubernetes. Increased deployment speed by 45% and reduced costs by $2M " +
		"through pipeline automation. Designed scalable APIs in Python serving " +
		"10 million requests daily. Let's connect: jane@example.com."

	SampleLowQuality = "stuff was done. stuff was done. stuff stuff and more stuff."
)
