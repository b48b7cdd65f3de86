package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LRUVictimFinder", func() {
	var (
		victimFinder *LRUVictimFinder
	)

	BeforeEach(func() {
		victimFinder = NewLRUVictimFinder()
	})

	It("should pick the least recently used line", func() {
		set := Set{Lines: []Line{
			{Tag: 1, IsValid: true},
			{Tag: 2, IsValid: true},
		}}

		Expect(victimFinder.FindVictim(set)).To(Equal(0))
	})

	It("should prefer an invalid line", func() {
		set := Set{Lines: []Line{
			{Tag: 1, IsValid: true},
			{Tag: 2, IsValid: false},
			{Tag: 3, IsValid: true},
		}}

		Expect(victimFinder.FindVictim(set)).To(Equal(1))
	})
})
