package browser

import (
	"fmt"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

// elementStateScript snapshots the DOM state of the first element matching
// a selector. The computed-style subset and the text prefix length match
// what the functional comparison consumes.
const elementStateScript = `
	(() => {
		const el = document.querySelector(%q);
		if (!el) return { exists: false };

		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = !!(el.offsetParent !== null ||
			(style.position === 'fixed' && style.display !== 'none' && style.visibility !== 'hidden'));

		let activeSlide = null;
		const slideSel = '.swiper-slide-active, .slick-active, .carousel-item.active, .active[data-slide-index]';
		const slides = el.querySelectorAll('.swiper-slide, .slick-slide, .carousel-item, [data-slide-index]');
		if (slides.length > 0) {
			for (let i = 0; i < slides.length; i++) {
				if (slides[i].matches(slideSel)) { activeSlide = i; break; }
			}
		}

		return {
			exists: true,
			is_visible: visible,
			bounding_box: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
			computed_style: {
				display: style.display,
				visibility: style.visibility,
				opacity: style.opacity,
				'max-height': style.maxHeight
			},
			class_list: Array.from(el.classList),
			inner_text_prefix: (el.innerText || '').slice(0, 120),
			active_slide_index: activeSlide
		};
	})()
`

// ElementState captures a point-in-time snapshot of the element matching
// the selector. A missing element yields Exists=false, not an error.
func (d *Driver) ElementState(selector string) (*inventory.ElementState, error) {
	var state inventory.ElementState
	if err := d.Evaluate(fmt.Sprintf(elementStateScript, selector), &state); err != nil {
		return nil, fmt.Errorf("failed to capture element state for %s: %w", selector, err)
	}
	return &state, nil
}
