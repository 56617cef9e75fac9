// Package caption produces short natural-language descriptions of images.
//
// A [Captioner] turns a batch of images into one [Caption] each. Two backends
// exist: [Stub], which describes only size and color mode, and [OpenAI],
// which calls any OpenAI-compatible vision endpoint. A [Service] puts a
// content-addressed disk [Cache] in front of a backend, splits misses into
// batches and filters out images that are not worth describing (icons,
// rules, blank areas).
package caption
