package outreach

import (
	"context"
	"strings"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// SubmitSearchEngines flags every search engine contact for manual sitemap
// submission. The outreach count is not touched since nothing was sent.
// It returns the contacts it changed.
func SubmitSearchEngines(ctx context.Context, cs []contact.Contact, kit PressKit, st Persister, now time.Time, dryRun bool, log Logger) ([]contact.Contact, error) {
	if log == nil {
		log = nopLogger{}
	}
	sitemap := strings.TrimSuffix(kit.SiteURL, "/") + "/sitemap.xml"

	var changed []contact.Contact
	for _, c := range cs {
		if c.Type != contact.TypeSearchEngine || c.Status == contact.StatusRejected {
			continue
		}
		if dryRun {
			log.Infof("[DRY RUN] Would submit to %s", c.Name)
			continue
		}
		url := c.SubmissionURL
		if url == "" {
			url = c.ContactFormURL
		}
		log.Infof("%s requires manual submission: visit %s and submit %s", c.Name, url, sitemap)

		if err := c.Advance(contact.StatusManualSubmission); err != nil {
			// already past manual submission
			continue
		}
		if c.ContactedDate == nil {
			t := now.UTC()
			c.ContactedDate = &t
		}
		if err := st.Update(ctx, c); err != nil {
			return changed, err
		}
		changed = append(changed, c)
	}
	return changed, nil
}
