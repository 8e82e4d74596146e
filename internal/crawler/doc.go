// Package crawler walks a website and extracts on-page SEO signals.
//
// # Components
//
//   - Spider: visits pages reachable from a seed URL, bounded by a page
//     budget, and builds one model.PageReport per fetched page
//   - Analyze: turns HTML into signals (title, meta description, canonical,
//     images without alt text) and candidate links, without any I/O
//   - frontier: the visited set and page budget of a single crawl
//
// # Traversal
//
// The crawl is depth-first. A URL is recorded as visited before it is
// fetched, and failed fetches count against the budget. Links are resolved
// against the page they appear on and followed only when their host passes
// the host matcher against that page's host. URLs are normalized (scheme
// and host lowercased, fragment removed, empty path as "/") before the
// visited check.
//
// With WithWorkers(n) for n > 1 up to n pages are fetched at once. The
// frontier still guarantees that no URL is fetched twice and that no fetch
// starts after the budget is spent; records are returned in discovery order.
//
// # Usage
//
//	f := fetch.New(fetch.WithTimeout(30 * time.Second))
//	spider := crawler.NewSpider(f, probe.New(f.Client()), crawler.WithMaxPages(5))
//	pages, err := spider.Crawl(ctx, "https://example.com/")
package crawler
