/*
Package locate finds on-screen elements from a human-readable field or
button name, without a pre-recorded selector.

A field name such as "Email" or "Add to Cart" is expanded into an ordered
list of candidate locators (see Generate). A Resolver then scans that list
against a Page in two phases: a bounded presence wait per candidate, then an
immediate sweep over every match of every candidate. The first element that
is both visible and enabled wins; list order, not a score, decides.

Pages are supplied by backend packages:

	webdriver  W3C / JSON Wire WebDriver client
	rodpage    go-rod
	cdppage    chromedp
	pwpage     playwright-go
	htmlpage   static HTML documents (no browser)

Example usage:

	wd, _ := webdriver.NewRemote(webdriver.Capabilities{"browserName": "chrome"}, "")
	defer wd.Quit()
	wd.Get("https://www.amazon.com")

	r, _ := locate.New(webdriver.NewPage(wd), locate.WithLogger(logger))
	m, err := r.Resolve(ctx, "Search")
	if err != nil {
		var nf *locate.NotFoundError
		if errors.As(err, &nf) {
			// nf.Candidates lists every locator that was tried.
		}
		return err
	}
	box := m.Element.(webdriver.WebElement)
	box.SendKeys("gopher plush" + webdriver.EnterKey)
*/
package locate
