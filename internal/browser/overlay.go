package browser

import (
	"encoding/json"
	"fmt"

	"github.com/nbenliogludev/go-nav-guide/internal/agent"
)

const (
	DefaultTourScriptURL = "https://cdn.jsdelivr.net/npm/driver.js@1.3.1/dist/driver.js.iife.js"
	DefaultTourStyleURL  = "https://cdn.jsdelivr.net/npm/driver.js@1.3.1/dist/driver.css"
)

// loadDriverScript injects driver.js once per page. The injected tags carry
// the navguide- marker so the snapshot extractor drops them.
func loadDriverScript(cssURL, jsURL string) string {
	return fmt.Sprintf(`(function() {
	return new Promise((resolve, reject) => {
		if (window.driver && window.driver.js) { resolve(true); return; }
		if (!document.getElementById('navguide-driver-css')) {
			const css = document.createElement('link');
			css.id = 'navguide-driver-css';
			css.rel = 'stylesheet';
			css.href = %q;
			document.head.appendChild(css);
		}
		const s = document.createElement('script');
		s.id = 'navguide-driver-js';
		s.src = %q;
		s.onload = () => resolve(true);
		s.onerror = () => reject(new Error('driver.js failed to load'));
		document.head.appendChild(s);
	});
})()`, cssURL, jsURL)
}

// startTourScript hands the whole tour to driver.js in one call.
func startTourScript(tour agent.Tour) (string, error) {
	cfg, err := json.Marshal(tour)
	if err != nil {
		return "", fmt.Errorf("encode tour: %w", err)
	}
	return fmt.Sprintf(`(function(cfg) {
	const d = window.driver.js.driver(cfg);
	d.drive();
	return true;
})(%s)`, cfg), nil
}

// highlightScript outlines the element when driver.js is unavailable.
func highlightScript(selector string) string {
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(`(function() {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.style.outline = "5px solid red";
	el.style.zIndex = "999999";
	el.scrollIntoView({behavior: "smooth", block: "center", inline: "center"});
	return true;
})()`, sel)
}

const clickFunction = `function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}
	this.click();
}`
