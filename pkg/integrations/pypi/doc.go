// Package pypi provides an HTTP client for the Python Package Index JSON API.
//
// # Overview
//
// uvbrew asks the index for a project's release listing to find the source
// distribution of the exact version being packaged:
//
//	client := pypi.NewClient(pypi.DefaultIndexURL, time.Minute)
//	project, err := client.FetchProject(ctx, "httpx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range project.Releases["0.27.0"] {
//	    if f.IsSourceDist() {
//	        fmt.Println(f.URL, f.Digests.SHA256)
//	    }
//	}
//
// # Custom Indexes
//
// Any index exposing GET {base}/{project}/json with a "releases" mapping
// works; pass its base URL to [NewClient].
//
// # Source Distributions
//
// [ReleaseFile.IsSourceDist] decides which files count as sdists. Wheels and
// other binary distributions never qualify.
package pypi
