package expense

import ginkgo "github.com/onsi/ginkgo/v2"

// Ginkgo is imported with a named import rather than the usual dot-import
// because its exported Report identifier collides with this package's Report
// type. These aliases cover the ginkgo API the specs use.
var (
	Describe       = ginkgo.Describe
	When           = ginkgo.When
	It             = ginkgo.It
	BeforeEach     = ginkgo.BeforeEach
	AfterEach      = ginkgo.AfterEach
	JustBeforeEach = ginkgo.JustBeforeEach
	GinkgoT        = ginkgo.GinkgoT
	RunSpecs       = ginkgo.RunSpecs
	Fail           = ginkgo.Fail
)
