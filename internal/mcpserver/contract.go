package mcpserver

// SlugRulesURI is the resource holding SlugRules.
const SlugRulesURI = "blockpress://slug-rules"

// SlugRules explains how published URLs are derived so LLM consumers can
// map workspace pages to site URLs without guessing.
const SlugRules = `# blockpress Slug Rules

Every page reachable from the site's root page is published under one
canonical slug. The slug is chosen by the first rule that applies:

1. **URL override.** ` + "`site.page_url_overrides`" + ` maps a slug to a page id.
   The configured slug is used verbatim.
2. **slug property.** A page property named ` + "`slug`" + ` (any case) is
   normalized and used.
3. **Title.** The page title is normalized: lower-cased, diacritics removed,
   every run of characters other than letters and digits becomes one ` + "`-`" + `,
   leading and trailing dashes are trimmed.
4. **Page id.** Untitled pages fall back to the 32 character compact id.

When ` + "`site.include_page_id_in_urls`" + ` is on, rules 2 and 3 append
` + "`-<compact id>`" + ` so identical titles never collide.

## Duplicates

Pages are enumerated breadth first from the root, in the order their parents
reference them. If two pages resolve to the same slug the first one keeps
it; the later page is still crawled but is not published and a warning is
logged.

## URLs

- The root page is served at ` + "`/`" + ` and also at ` + "`/<slug>`" + `.
- Every other page is served at ` + "`/<slug>`" + `.
- Tag listings live at ` + "`/tags/<tag slug>`" + `.
- The RSS feed lives at ` + "`/feed.xml`" + `.

## Timestamps

` + "`createdTime`" + ` and ` + "`lastEditedTime`" + ` come from the properties
named by ` + "`site.override_created_time`" + ` and
` + "`site.override_last_edited_time`" + ` when those resolve to a date or an epoch
millisecond value. Otherwise the workspace's native timestamps are used, and
` + "`null`" + ` when neither is available.
`
