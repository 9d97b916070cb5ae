// Package site provides pure functions for turning a repository checkout
// into a deployable static site.
//
// The imperative shell (internal/shell/source) walks the checkout, hands the
// listing to these functions and then writes or zips files according to the
// returned plan.
//
// # Functions
//
//   - Framework: detect the web framework from package.json and marker files (DetectFramework)
//   - Publish directory: pick the directory to publish (ChoosePublishDir)
//   - Packaging: order files by importance and apply size limits (PlanPackage)
//   - Size check: decide whether a site is too large to deploy (CheckSize)
package site
